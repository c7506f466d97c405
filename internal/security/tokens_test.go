package security

import (
	"context"
	"errors"
	"testing"
	"time"

	"device-checkin/internal/gcm/domain"
)

var testApp = domain.AppIdentity{
	PackageName:     "com.example.chat",
	SignatureDigest: "38918a453d07199354f8b19af05ec6562ced5788",
	VersionCode:     42,
}

func TestTokenProvider_IssueAndResolve(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	token, exp, err := p.IssueCaller(testApp)
	if err != nil {
		t.Fatalf("IssueCaller: %v", err)
	}
	if token == "" {
		t.Fatal("token empty")
	}
	if exp.Before(time.Now()) {
		t.Fatal("expires at in the past")
	}

	app, err := p.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if app != testApp {
		t.Errorf("Resolve = %+v, want %+v", app, testApp)
	}
}

func TestTokenProvider_ResolveInvalid(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	for _, tok := range []string{"", "invalid-token", "a.b.c"} {
		if _, err := p.Resolve(context.Background(), tok); err != ErrInvalidToken {
			t.Errorf("Resolve(%q): want ErrInvalidToken, got %v", tok, err)
		}
	}
}

func TestTokenProvider_ResolveWrongAudienceOrIssuer(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	token, _, err := p.IssueCaller(testApp)
	if err != nil {
		t.Fatalf("IssueCaller: %v", err)
	}
	other := NewTokenProvider(nil, p.publicKey, "test-issuer", "other-audience", time.Hour)
	if _, err := other.Resolve(context.Background(), token); err != ErrInvalidToken {
		t.Errorf("wrong audience: want ErrInvalidToken, got %v", err)
	}
	other = NewTokenProvider(nil, p.publicKey, "other-issuer", "test-audience", time.Hour)
	if _, err := other.Resolve(context.Background(), token); err != ErrInvalidToken {
		t.Errorf("wrong issuer: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_Expired(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	expired := NewTokenProvider(p.privateKey, p.publicKey, "test-issuer", "test-audience", -time.Minute)
	token, _, err := expired.IssueCaller(testApp)
	if err != nil {
		t.Fatalf("IssueCaller: %v", err)
	}
	if _, err := p.Resolve(context.Background(), token); err != ErrInvalidToken {
		t.Errorf("expired token: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_IssueCallerErrors(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	if _, _, err := p.IssueCaller(domain.AppIdentity{}); !errors.Is(err, domain.ErrInvalidApp) {
		t.Errorf("empty app: want ErrInvalidApp, got %v", err)
	}
	resolveOnly := NewTokenProvider(nil, p.publicKey, "test-issuer", "test-audience", time.Hour)
	if _, _, err := resolveOnly.IssueCaller(testApp); err != ErrSigningDisabled {
		t.Errorf("resolve-only: want ErrSigningDisabled, got %v", err)
	}
}
