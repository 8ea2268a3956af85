package security

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scope identifies which level of the key hierarchy an entry belongs to.
type Scope string

const (
	ScopeSigner Scope = "signer"
	ScopeTenant Scope = "tenant"
	ScopeShared Scope = "shared"
)

// KeyMaterial is a resolved signing certificate and private key, both PEM.
// Passphrase is attached by the resolver from a separate secret source and
// is never embedded in the key material itself.
type KeyMaterial struct {
	CertificatePEM string
	PrivateKeyPEM  string
	Passphrase     string
}

// KeyStore is a pluggable secure-storage backend. A miss returns (nil, nil);
// errors are reserved for backend failures.
type KeyStore interface {
	Get(ctx context.Context, scope Scope, id string) (*KeyMaterial, error)
}

// PassphraseSource supplies decryption passphrases for stored private keys.
type PassphraseSource interface {
	Passphrase(scope Scope, id string) string
}

// EnvPassphraseSource reads passphrases from the environment:
// SIGNING_KEY_PASSPHRASE_<SCOPE>_<ID> first, SIGNING_KEY_PASSPHRASE as the
// catch-all.
type EnvPassphraseSource struct{}

func (EnvPassphraseSource) Passphrase(scope Scope, id string) string {
	key := fmt.Sprintf("SIGNING_KEY_PASSPHRASE_%s_%s",
		strings.ToUpper(string(scope)),
		strings.ToUpper(strings.ReplaceAll(id, "-", "_")))
	if v := os.Getenv(key); v != "" {
		return v
	}
	return os.Getenv("SIGNING_KEY_PASSPHRASE")
}

type cacheEntry struct {
	material  *KeyMaterial
	expiresAt time.Time
}

// Keyring resolves signing material for a professional or clinic, first
// match wins: explicit caller-supplied PEM, signer-scoped entry,
// tenant-scoped entry, then the shared fallback. The shared fallback exists
// for development and test deployments only and is never consulted when the
// keyring is in production mode.
type Keyring struct {
	store       KeyStore
	passphrases PassphraseSource
	production  bool
	logger      *zap.Logger

	ttl   time.Duration
	mu    sync.Mutex
	cache map[string]cacheEntry
}

// DefaultKeyCacheTTL keeps resolved material in memory briefly to avoid
// repeated backend lookups. Cached private keys live only in memory.
const DefaultKeyCacheTTL = 5 * time.Minute

func NewKeyring(store KeyStore, passphrases PassphraseSource, production bool, logger *zap.Logger) *Keyring {
	if passphrases == nil {
		passphrases = EnvPassphraseSource{}
	}
	return &Keyring{
		store:       store,
		passphrases: passphrases,
		production:  production,
		logger:      logger.With(zap.String("component", "keyring")),
		ttl:         DefaultKeyCacheTTL,
		cache:       make(map[string]cacheEntry),
	}
}

// ResolveRequest carries the lookup identifiers plus an optional explicit
// override, used for testing and explicit key rotation.
type ResolveRequest struct {
	SignerID       string
	TenantID       string
	CertificatePEM string
	PrivateKeyPEM  string
}

// Resolve walks the priority order and returns the first material found.
// A full miss returns (nil, nil): callers decide whether a missing key is
// fatal.
func (k *Keyring) Resolve(ctx context.Context, req ResolveRequest) (*KeyMaterial, error) {
	if req.PrivateKeyPEM != "" {
		return &KeyMaterial{
			CertificatePEM: req.CertificatePEM,
			PrivateKeyPEM:  req.PrivateKeyPEM,
		}, nil
	}

	if req.SignerID != "" {
		material, err := k.lookup(ctx, ScopeSigner, req.SignerID)
		if err != nil {
			return nil, err
		}
		if material != nil {
			return material, nil
		}
	}

	if req.TenantID != "" {
		material, err := k.lookup(ctx, ScopeTenant, req.TenantID)
		if err != nil {
			return nil, err
		}
		if material != nil {
			return material, nil
		}
	}

	if k.production {
		k.logger.Warn("no signing key resolved; shared fallback disabled in production",
			zap.String("signer_id", req.SignerID),
			zap.String("tenant_id", req.TenantID))
		return nil, nil
	}

	return k.lookup(ctx, ScopeShared, "default")
}

func (k *Keyring) lookup(ctx context.Context, scope Scope, id string) (*KeyMaterial, error) {
	cacheKey := string(scope) + "/" + id

	k.mu.Lock()
	entry, ok := k.cache[cacheKey]
	if ok && time.Now().Before(entry.expiresAt) {
		k.mu.Unlock()
		// Callers get a copy so mutations never reach the cache.
		out := *entry.material
		return &out, nil
	}
	if ok {
		delete(k.cache, cacheKey)
	}
	k.mu.Unlock()

	material, err := k.store.Get(ctx, scope, id)
	if err != nil {
		return nil, fmt.Errorf("key store lookup failed: %w", err)
	}
	if material == nil {
		return nil, nil
	}

	material.Passphrase = k.passphrases.Passphrase(scope, id)

	k.mu.Lock()
	k.cache[cacheKey] = cacheEntry{material: material, expiresAt: time.Now().Add(k.ttl)}
	k.mu.Unlock()

	out := *material
	return &out, nil
}

// FileKeyStore reads PEM material from a directory tree:
// <base>/<scope>/<id>/certificate.pem and private_key.pem.
type FileKeyStore struct {
	baseDir string
}

func NewFileKeyStore(baseDir string) *FileKeyStore {
	return &FileKeyStore{baseDir: baseDir}
}

func (s *FileKeyStore) Get(ctx context.Context, scope Scope, id string) (*KeyMaterial, error) {
	dir := filepath.Join(s.baseDir, string(scope), id)

	keyBytes, err := os.ReadFile(filepath.Join(dir, "private_key.pem"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// The certificate is optional for entries used only for signing.
	certBytes, err := os.ReadFile(filepath.Join(dir, "certificate.pem"))
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return &KeyMaterial{
		CertificatePEM: string(certBytes),
		PrivateKeyPEM:  string(keyBytes),
	}, nil
}

// MemoryKeyStore is an in-memory backend for tests.
type MemoryKeyStore struct {
	mu      sync.RWMutex
	entries map[string]*KeyMaterial
}

func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{entries: make(map[string]*KeyMaterial)}
}

func (s *MemoryKeyStore) Put(scope Scope, id string, material *KeyMaterial) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[string(scope)+"/"+id] = material
}

func (s *MemoryKeyStore) Get(ctx context.Context, scope Scope, id string) (*KeyMaterial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	material, ok := s.entries[string(scope)+"/"+id]
	if !ok {
		return nil, nil
	}
	out := *material
	return &out, nil
}
