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
	"golang.org/x/sync/singleflight"
)

const (
	firebaseIssuerPrefix = "https://securetoken.google.com/"
	// an unknown kid refetches the key set at most this often
	minKeyRefresh = time.Minute
)

type jwks struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type firebaseClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

// FirebaseVerifier checks Firebase ID tokens: RS256 signatures against the
// securetoken JWKS, issuer and audience bound to the project.
type FirebaseVerifier struct {
	projectID  string
	jwksURL    string
	httpClient *http.Client
	keyTTL     time.Duration
	minRefresh time.Duration

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetched   time.Time
	attempted time.Time
	sf        singleflight.Group
}

func NewFirebaseVerifier(projectID, jwksURL string, client *http.Client) *FirebaseVerifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &FirebaseVerifier{
		projectID:  projectID,
		jwksURL:    jwksURL,
		httpClient: client,
		keyTTL:     time.Hour,
		minRefresh: minKeyRefresh,
		keys:       make(map[string]*rsa.PublicKey),
	}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, tokenStr string) (*Identity, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &firebaseClaims{}, func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		return v.key(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(firebaseIssuerPrefix+v.projectID),
		jwt.WithAudience(v.projectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := t.Claims.(*firebaseClaims)
	if !ok || !t.Valid || c.Subject == "" {
		return nil, ErrInvalidToken
	}
	if c.Email == "" {
		return nil, ErrNoEmail
	}
	if !c.EmailVerified {
		return nil, ErrUnverified
	}
	return &Identity{UID: c.Subject, Email: c.Email}, nil
}

func (v *FirebaseVerifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if k, ok := v.cached(kid); ok {
		return k, nil
	}
	if !v.refreshDue() {
		return nil, fmt.Errorf("unknown kid %q", kid)
	}
	// one fetch at a time; concurrent misses wait for it
	if _, err, _ := v.sf.Do("jwks", func() (any, error) { return nil, v.refresh(ctx) }); err != nil {
		return nil, err
	}
	if k, ok := v.cached(kid); ok {
		return k, nil
	}
	return nil, fmt.Errorf("unknown kid %q", kid)
}

func (v *FirebaseVerifier) cached(kid string) (*rsa.PublicKey, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if time.Since(v.fetched) > v.keyTTL {
		return nil, false
	}
	k, ok := v.keys[kid]
	return k, ok
}

// refreshDue reports whether the last fetch attempt, failed or not, is old
// enough to try again.
func (v *FirebaseVerifier) refreshDue() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return time.Since(v.attempted) >= v.minRefresh
}

func (v *FirebaseVerifier) refresh(ctx context.Context) error {
	v.mu.Lock()
	v.attempted = time.Now()
	v.mu.Unlock()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return err
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch jwks: status %d", resp.StatusCode)
	}
	var set jwks
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("decode jwks: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := rsaKeyFromJWK(k)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return errors.New("jwks: no usable keys")
	}
	v.mu.Lock()
	v.keys = keys
	v.fetched = time.Now()
	v.mu.Unlock()
	return nil
}

func rsaKeyFromJWK(j jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(j.N)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(j.E)
	if err != nil {
		return nil, err
	}
	e := 0
	for _, b := range eBytes {
		e = e<<8 + int(b)
	}
	if e == 0 {
		return nil, errors.New("invalid exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}
