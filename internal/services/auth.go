package services

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nutrilens/backend/internal/config"
	"github.com/nutrilens/backend/pkg/logger"
)

// IdentityClaims are the token claims we consume from the identity provider:
// the subject is the stable user id, email is informational.
type IdentityClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenVerifier validates bearer tokens issued by the external identity
// provider. Signatures are verified against the provider's published JWKS;
// a token is never trusted on its payload alone.
type TokenVerifier struct {
	cfg        *config.AuthConfig
	httpClient *http.Client

	// keyfunc resolves the verification key for a token. The default
	// resolves RSA keys from the cached JWKS by kid; tests inject their own.
	keyfunc jwt.Keyfunc

	mu   sync.RWMutex
	keys map[string]*rsa.PublicKey
}

func NewTokenVerifier(cfg *config.AuthConfig) *TokenVerifier {
	v := &TokenVerifier{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		keys:       make(map[string]*rsa.PublicKey),
	}
	v.keyfunc = v.jwksKeyfunc
	return v
}

// Verify parses and validates a bearer token and resolves the caller identity.
// Every failure maps to ErrUnauthenticated; callers get no detail beyond that.
func (v *TokenVerifier) Verify(tokenString string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}

	var claims IdentityClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, v.keyfunc, opts...)
	if err != nil {
		logger.Warn().Err(err).Msg("token verification failed")
		return Identity{}, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}
	if !token.Valid || claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}

	return Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// jwksKeyfunc resolves the RSA public key for a token's kid, refreshing the
// JWKS once when the kid is unknown (covers provider key rotation).
func (v *TokenVerifier) jwksKeyfunc(token *jwt.Token) (interface{}, error) {
	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		return nil, fmt.Errorf("token has no kid header")
	}

	v.mu.RLock()
	key, ok := v.keys[kid]
	v.mu.RUnlock()
	if ok {
		return key, nil
	}

	if err := v.refreshKeys(); err != nil {
		return nil, err
	}

	v.mu.RLock()
	key, ok = v.keys[kid]
	v.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown signing key: %s", kid)
	}
	return key, nil
}

// jwks is the subset of RFC 7517 we need for RSA verification keys.
type jwks struct {
	Keys []struct {
		Kty string `json:"kty"`
		Kid string `json:"kid"`
		Use string `json:"use"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

func (v *TokenVerifier) refreshKeys() error {
	resp, err := v.httpClient.Get(v.cfg.JWKSURL)
	if err != nil {
		return fmt.Errorf("fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch JWKS: unexpected status %d", resp.StatusCode)
	}

	var set jwks
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		pub, err := parseRSAKey(k.N, k.E)
		if err != nil {
			logger.Warn().Err(err).Str("kid", k.Kid).Msg("skipping unparsable JWKS key")
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return fmt.Errorf("JWKS contained no usable RSA keys")
	}

	v.mu.Lock()
	v.keys = keys
	v.mu.Unlock()

	logger.Info().Int("keys", len(keys)).Msg("JWKS refreshed")
	return nil
}

func parseRSAKey(n, e string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}

	exp := 0
	for _, b := range eBytes {
		exp = exp<<8 | int(b)
	}
	if exp <= 1 {
		return nil, fmt.Errorf("invalid exponent")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: exp,
	}, nil
}
