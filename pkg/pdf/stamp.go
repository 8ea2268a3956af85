package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// StampData carries the fields rendered onto a signature stamp page.
type StampData struct {
	SignerName          string
	LicenseNumber       string
	LicenseJurisdiction string
	DocumentDigest      string
	Algorithm           string
	CertificateSerial   string
	CertificateIssuer   string
	SignedAt            time.Time
}

// RenderStamp produces a one-page PDF appendix describing a digital
// signature, for attachment to a rendered document by the rendering layer.
// Embedding a cryptographic envelope inside the document itself is not done
// here; this page is a human-readable record only.
func RenderStamp(data StampData) ([]byte, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 14)
	doc.CellFormat(0, 10, "Digitally Signed Document", "", 1, "C", false, 0, "")
	doc.Ln(4)

	doc.SetFont("Helvetica", "", 10)
	rows := [][2]string{
		{"Signer", fmt.Sprintf("Dr. %s - CRM/%s %s", data.SignerName, data.LicenseNumber, data.LicenseJurisdiction)},
		{"Signed at", data.SignedAt.Format(time.RFC3339)},
		{"Algorithm", data.Algorithm},
		{"Document digest (SHA-256)", data.DocumentDigest},
		{"Certificate serial", data.CertificateSerial},
		{"Certificate issuer", data.CertificateIssuer},
	}
	for _, row := range rows {
		doc.SetFont("Helvetica", "B", 10)
		doc.CellFormat(60, 8, row[0], "", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 9)
		doc.MultiCell(0, 8, row[1], "", "L", false)
	}

	doc.Ln(10)
	pageW, _ := doc.GetPageSize()
	lineW := 65.0
	x := (pageW - lineW) / 2
	y := doc.GetY()
	doc.Line(x, y, x+lineW, y)
	doc.SetFont("Helvetica", "", 9)
	doc.SetXY(x, y+2)
	doc.CellFormat(lineW, 6,
		fmt.Sprintf("Dr. %s - CRM/%s", data.SignerName, data.LicenseNumber),
		"", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render signature stamp: %w", err)
	}
	return buf.Bytes(), nil
}
