package security

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"device-checkin/internal/gcm/domain"
)

var (
	// ErrInvalidToken is returned when a caller token is malformed or invalid.
	ErrInvalidToken = errors.New("invalid token")
	// ErrSigningDisabled is returned by IssueCaller on a provider built without a private key.
	ErrSigningDisabled = errors.New("token signing disabled: no private key")
)

// CallerClaims is the capability an app presents to the registration front. Subject is the
// package name; the digest and version code are what the register endpoint needs about the app.
type CallerClaims struct {
	jwt.RegisteredClaims
	SignatureDigest string `json:"sig"`
	VersionCode     int32  `json:"ver"`
}

// TokenProvider issues and resolves caller capability JWTs using RS256 or ES256.
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
	ttl        time.Duration
}

// NewTokenProvider returns a TokenProvider. privateKey may be nil for a resolve-only provider.
// issuer and audience are set on issued claims and required on resolve.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, ttl time.Duration) *TokenProvider {
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
		ttl:        ttl,
	}
}

// IssueCaller issues a capability token binding app's package, signature digest and version.
func (p *TokenProvider) IssueCaller(app domain.AppIdentity) (token string, expiresAt time.Time, err error) {
	if p.privateKey == nil {
		return "", time.Time{}, ErrSigningDisabled
	}
	if err := app.Validate(); err != nil {
		return "", time.Time{}, err
	}
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt = now.Add(p.ttl)
	claims := CallerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   app.PackageName,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SignatureDigest: app.SignatureDigest,
		VersionCode:     app.VersionCode,
	}
	token, err = p.sign(claims)
	return token, expiresAt, err
}

func (p *TokenProvider) sign(claims jwt.Claims) (string, error) {
	var method jwt.SigningMethod
	switch p.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", ErrInvalidToken
	}
	t := jwt.NewWithClaims(method, claims)
	return t.SignedString(p.privateKey)
}

// Resolve validates a caller token (signature, exp, iss, aud) and returns the app it names.
func (p *TokenProvider) Resolve(ctx context.Context, tokenString string) (domain.AppIdentity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CallerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); ok {
			return p.publicKey, nil
		}
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); ok {
			return p.publicKey, nil
		}
		return nil, ErrInvalidToken
	})
	if err != nil {
		return domain.AppIdentity{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(*CallerClaims)
	if !ok || !token.Valid {
		return domain.AppIdentity{}, ErrInvalidToken
	}
	if claims.Issuer != p.issuer || !slices.Contains(claims.Audience, p.audience) || claims.Subject == "" {
		return domain.AppIdentity{}, ErrInvalidToken
	}
	return domain.AppIdentity{
		PackageName:     claims.Subject,
		SignatureDigest: claims.SignatureDigest,
		VersionCode:     claims.VersionCode,
	}, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
