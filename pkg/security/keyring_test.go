package security

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type countingStore struct {
	inner KeyStore
	hits  int64
}

func (s *countingStore) Get(ctx context.Context, scope Scope, id string) (*KeyMaterial, error) {
	atomic.AddInt64(&s.hits, 1)
	return s.inner.Get(ctx, scope, id)
}

type staticPassphrases map[string]string

func (p staticPassphrases) Passphrase(scope Scope, id string) string {
	return p[string(scope)+"/"+id]
}

func TestKeyringExplicitOverrideWins(t *testing.T) {
	store := NewMemoryKeyStore()
	store.Put(ScopeSigner, "doc-1", &KeyMaterial{PrivateKeyPEM: "signer-key"})
	keyring := NewKeyring(store, nil, false, zap.NewNop())

	material, err := keyring.Resolve(context.Background(), ResolveRequest{
		SignerID:      "doc-1",
		PrivateKeyPEM: "explicit-key",
	})
	assert.NoError(t, err)
	assert.Equal(t, "explicit-key", material.PrivateKeyPEM)
}

func TestKeyringPriorityOrder(t *testing.T) {
	store := NewMemoryKeyStore()
	store.Put(ScopeSigner, "doc-1", &KeyMaterial{PrivateKeyPEM: "signer-key"})
	store.Put(ScopeTenant, "clinic-9", &KeyMaterial{PrivateKeyPEM: "tenant-key"})
	store.Put(ScopeShared, "default", &KeyMaterial{PrivateKeyPEM: "shared-key"})
	keyring := NewKeyring(store, nil, false, zap.NewNop())
	ctx := context.Background()

	material, err := keyring.Resolve(ctx, ResolveRequest{SignerID: "doc-1", TenantID: "clinic-9"})
	assert.NoError(t, err)
	assert.Equal(t, "signer-key", material.PrivateKeyPEM)

	material, err = keyring.Resolve(ctx, ResolveRequest{SignerID: "doc-2", TenantID: "clinic-9"})
	assert.NoError(t, err)
	assert.Equal(t, "tenant-key", material.PrivateKeyPEM)

	material, err = keyring.Resolve(ctx, ResolveRequest{SignerID: "doc-2", TenantID: "clinic-0"})
	assert.NoError(t, err)
	assert.Equal(t, "shared-key", material.PrivateKeyPEM)
}

func TestKeyringProductionDisablesSharedFallback(t *testing.T) {
	store := NewMemoryKeyStore()
	store.Put(ScopeShared, "default", &KeyMaterial{PrivateKeyPEM: "shared-key"})
	keyring := NewKeyring(store, nil, true, zap.NewNop())

	material, err := keyring.Resolve(context.Background(), ResolveRequest{
		SignerID: "doc-1",
		TenantID: "clinic-9",
	})
	assert.NoError(t, err)
	assert.Nil(t, material)
}

func TestKeyringMissReturnsNil(t *testing.T) {
	keyring := NewKeyring(NewMemoryKeyStore(), nil, true, zap.NewNop())

	material, err := keyring.Resolve(context.Background(), ResolveRequest{SignerID: "nobody"})
	assert.NoError(t, err)
	assert.Nil(t, material)
}

func TestKeyringCachesLookups(t *testing.T) {
	inner := NewMemoryKeyStore()
	inner.Put(ScopeSigner, "doc-1", &KeyMaterial{PrivateKeyPEM: "signer-key"})
	store := &countingStore{inner: inner}
	keyring := NewKeyring(store, nil, false, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		material, err := keyring.Resolve(ctx, ResolveRequest{SignerID: "doc-1"})
		assert.NoError(t, err)
		assert.Equal(t, "signer-key", material.PrivateKeyPEM)
	}
	assert.Equal(t, int64(1), atomic.LoadInt64(&store.hits))
}

func TestKeyringAttachesPassphrase(t *testing.T) {
	store := NewMemoryKeyStore()
	store.Put(ScopeSigner, "doc-1", &KeyMaterial{PrivateKeyPEM: "signer-key"})
	passphrases := staticPassphrases{"signer/doc-1": "s3cret"}
	keyring := NewKeyring(store, passphrases, false, zap.NewNop())

	material, err := keyring.Resolve(context.Background(), ResolveRequest{SignerID: "doc-1"})
	assert.NoError(t, err)
	assert.Equal(t, "s3cret", material.Passphrase)
}

func TestKeyringCallersCannotPoisonCache(t *testing.T) {
	store := NewMemoryKeyStore()
	store.Put(ScopeSigner, "doc-1", &KeyMaterial{PrivateKeyPEM: "signer-key"})
	keyring := NewKeyring(store, nil, false, zap.NewNop())
	ctx := context.Background()

	material, err := keyring.Resolve(ctx, ResolveRequest{SignerID: "doc-1"})
	assert.NoError(t, err)
	material.PrivateKeyPEM = "tampered"
	material.Passphrase = "tampered"

	again, err := keyring.Resolve(ctx, ResolveRequest{SignerID: "doc-1"})
	assert.NoError(t, err)
	assert.Equal(t, "signer-key", again.PrivateKeyPEM)
}

func TestFileKeyStoreMiss(t *testing.T) {
	store := NewFileKeyStore(t.TempDir())
	material, err := store.Get(context.Background(), ScopeSigner, "absent")
	assert.NoError(t, err)
	assert.Nil(t, material)
}
