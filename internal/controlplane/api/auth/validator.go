package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Common errors returned by Validator.
var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrUnknownKeyID  = errors.New("unknown signing key")
	ErrJWKSFetch     = errors.New("failed to fetch JWKS")
	ErrUnsupportedKT = errors.New("unsupported key type")
)

// jwk is a single JSON Web Key as published by a JWKS endpoint. Only the
// fields needed for RSA signature verification (RS256/RS384/RS512) are
// decoded; identity providers ShareGuard has been deployed against so far
// only sign with RSA keys.
type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwksDocument struct {
	Keys []jwk `json:"keys"`
}

// ValidatorConfig configures a Validator.
type ValidatorConfig struct {
	// JWKSURL is the identity provider's JWKS endpoint.
	JWKSURL string

	// Issuer, when set, is required to match the token's "iss" claim.
	Issuer string

	// Audience, when set, is required to match one of the token's "aud"
	// claim values.
	Audience string

	// RefreshInterval controls how often the key set is refetched.
	// Default: 1 hour.
	RefreshInterval time.Duration

	// HTTPClient is used to fetch the JWKS document. Default:
	// http.DefaultClient.
	HTTPClient *http.Client
}

func (c *ValidatorConfig) applyDefaults() {
	if c.RefreshInterval == 0 {
		c.RefreshInterval = time.Hour
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
}

// Validator verifies bearer tokens against an external identity provider's
// JWKS endpoint. ShareGuard never signs or issues tokens itself, so unlike
// a typical JWTService there is no Generate side: Validator only parses and
// verifies.
//
// The key set is cached and refreshed on a timer, with a forced refetch on
// an unrecognized key ID -- this lets the provider rotate signing keys
// without restarting ShareGuard.
type Validator struct {
	config ValidatorConfig

	mu       sync.RWMutex
	keys     map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewValidator creates a Validator and performs an initial key fetch.
func NewValidator(ctx context.Context, config ValidatorConfig) (*Validator, error) {
	if config.JWKSURL == "" {
		return nil, errors.New("auth: JWKSURL is required")
	}
	config.applyDefaults()

	v := &Validator{config: config}
	if err := v.refresh(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

// ValidateToken parses and verifies a bearer token, returning its claims.
// On an unrecognized key ID it forces a single key-set refetch before
// failing, to tolerate the provider rotating keys between cache refreshes.
func (v *Validator) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := v.parse(tokenString)
	if errors.Is(err, ErrUnknownKeyID) {
		if refreshErr := v.refresh(ctx); refreshErr == nil {
			claims, err = v.parse(tokenString)
		}
	}
	return claims, err
}

func (v *Validator) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyFunc, jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, ErrUnknownKeyID) {
			return nil, ErrUnknownKeyID
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if v.config.Issuer != "" && claims.Issuer != v.config.Issuer {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, claims.Issuer)
	}
	if v.config.Audience != "" {
		aud, err := claims.GetAudience()
		if err != nil || !containsAudience(aud, v.config.Audience) {
			return nil, fmt.Errorf("%w: unexpected audience", ErrInvalidToken)
		}
	}
	return claims, nil
}

func containsAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}

func (v *Validator) keyFunc(token *jwt.Token) (any, error) {
	kid, ok := token.Header["kid"].(string)
	if !ok || kid == "" {
		return nil, fmt.Errorf("%w: token has no kid header", ErrInvalidToken)
	}

	v.mu.RLock()
	key, ok := v.keys[kid]
	v.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownKeyID
	}
	return key, nil
}

// refresh fetches and decodes the JWKS document, replacing the cached key
// set. Safe to call concurrently; readers see the old key set until the new
// one is fully decoded.
func (v *Validator) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.config.JWKSURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJWKSFetch, err)
	}

	resp, err := v.config.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJWKSFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrJWKSFetch, resp.StatusCode)
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("%w: %v", ErrJWKSFetch, err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		pub, err := rsaPublicKeyFromJWK(k)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: no usable RSA keys in JWKS response", ErrJWKSFetch)
	}

	v.mu.Lock()
	v.keys = keys
	v.fetchedAt = time.Now()
	v.mu.Unlock()
	return nil
}

func rsaPublicKeyFromJWK(k jwk) (*rsa.PublicKey, error) {
	if k.Kty != "RSA" {
		return nil, ErrUnsupportedKT
	}

	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}

	n := new(big.Int).SetBytes(nBytes)
	e := new(big.Int).SetBytes(eBytes)

	return &rsa.PublicKey{
		N: n,
		E: int(e.Int64()),
	}, nil
}

// StartAutoRefresh spawns a goroutine that refetches the key set on
// RefreshInterval until ctx is canceled. Refetch failures are tolerated --
// the previous key set stays in effect, since a transient JWKS outage
// shouldn't invalidate every already-cached key.
func (v *Validator) StartAutoRefresh(ctx context.Context, onError func(error)) {
	go func() {
		ticker := time.NewTicker(v.config.RefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := v.refresh(ctx); err != nil && onError != nil {
					onError(err)
				}
			}
		}
	}()
}
