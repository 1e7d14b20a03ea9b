package acmemgr

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInitACMERejectsUnknownProvider(t *testing.T) {
	m := NewManager(nil, silentLogger())

	if _, err := m.InitACME(context.Background(), "does-not-exist"); err == nil {
		t.Fatal("expected an error for an unconfigured provider")
	}
}

func TestRenewRejectsUnknownProvider(t *testing.T) {
	m := NewManager(nil, silentLogger())

	if _, err := m.Renew(context.Background(), "does-not-exist"); err == nil {
		t.Fatal("expected an error for an unconfigured provider")
	}
}

func TestRenewRejectsUninitializedProvider(t *testing.T) {
	m := NewManager([]ProviderConfig{{ID: "letsencrypt", Directory: "https://example.invalid/directory"}}, silentLogger())

	if _, err := m.Renew(context.Background(), "letsencrypt"); err == nil {
		t.Fatal("expected an error renewing before InitACME has run")
	}
}

func TestNewCSRProducesParsableRequest(t *testing.T) {
	csr, key, err := newCSR([]string{"mail.example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(csr) == 0 {
		t.Fatal("expected a non-empty CSR")
	}
	if key == nil {
		t.Fatal("expected a non-nil private key")
	}
}
