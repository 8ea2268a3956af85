package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtractCertificateInfo(t *testing.T) {
	notBefore := time.Now().Add(-time.Hour)
	notAfter := time.Now().Add(24 * time.Hour)
	certPEM, _ := generateTestCertificate(t, "Dr. Joao Silva - CRM 123456/SP", notBefore, notAfter)

	info, err := ExtractCertificateInfo(certPEM)
	assert.NoError(t, err)
	assert.Equal(t, "987654321", info.SerialNumber)
	assert.Contains(t, info.Subject, "Dr. Joao Silva - CRM 123456/SP")
	assert.True(t, info.IsCurrentlyValid)
	assert.WithinDuration(t, notBefore, info.ValidFrom, 2*time.Second)
	assert.WithinDuration(t, notAfter, info.ValidTo, 2*time.Second)

	assert.NotNil(t, info.License)
	assert.Equal(t, "123456", info.License.Number)
	assert.Equal(t, "SP", info.License.Jurisdiction)
}

func TestExtractCertificateInfoExpired(t *testing.T) {
	certPEM, _ := generateTestCertificate(t, "Dr. Joao Silva - CRM 123456/SP",
		time.Now().Add(-48*time.Hour), time.Now().Add(-24*time.Hour))

	info, err := ExtractCertificateInfo(certPEM)
	assert.NoError(t, err)
	assert.False(t, info.IsCurrentlyValid)
}

func TestExtractCertificateInfoNoLicenseMarker(t *testing.T) {
	certPEM, _ := generateTestCertificate(t, "Dr. Maria Santos",
		time.Now().Add(-time.Hour), time.Now().Add(24*time.Hour))

	info, err := ExtractCertificateInfo(certPEM)
	assert.NoError(t, err)
	// Missing marker is not an error; callers supply license fields.
	assert.Nil(t, info.License)
}

func TestExtractCertificateInfoMalformed(t *testing.T) {
	_, err := ExtractCertificateInfo("not a certificate")
	assert.ErrorIs(t, err, ErrMalformedCert)
}

func TestParseLicense(t *testing.T) {
	cases := []struct {
		name       string
		commonName string
		want       *License
	}{
		{"standard", "Dr. Joao Silva - CRM 123456/SP", &License{Number: "123456", Jurisdiction: "SP"}},
		{"colon separator", "Dra. Ana CRM: 7890/RJ", &License{Number: "7890", Jurisdiction: "RJ"}},
		{"spaced slash", "CRM 42 / MG", &License{Number: "42", Jurisdiction: "MG"}},
		{"no marker", "Dr. Joao Silva", nil},
		{"marker without number", "CRM pending", nil},
		{"missing jurisdiction", "CRM 123456", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseLicense(tc.commonName))
		})
	}
}
