package identity

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

const (
	// FirebaseCertsURL serves the x509 certificates that sign Firebase ID tokens.
	FirebaseCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

	defaultKeyTTL = time.Hour
	keyCacheSize  = 32
	// tokens naming an unknown kid cannot force downloads more often than this
	minRefreshInterval = time.Minute
	firebaseIssuerAt   = "https://securetoken.google.com/"
)

type FirebaseConfig struct {
	ProjectID  string
	CertsURL   string
	HTTPClient *http.Client
	Leeway     time.Duration
}

type cachedKey struct {
	key       *rsa.PublicKey
	expiresAt time.Time
}

// FirebaseVerifier checks Firebase Authentication ID tokens.
type FirebaseVerifier struct {
	projectID string
	certsURL  string
	client    *http.Client
	leeway    time.Duration

	mu        sync.Mutex
	keys      *lru.Cache[string, cachedKey]
	lastFetch time.Time
	group     singleflight.Group
	now       func() time.Time
}

type firebaseClaims struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Picture  string `json:"picture"`
	Role     string `json:"role"`
	AuthTime int64  `json:"auth_time"`
	jwt.RegisteredClaims
}

func NewFirebaseVerifier(cfg FirebaseConfig) (*FirebaseVerifier, error) {
	keys, err := lru.New[string, cachedKey](keyCacheSize)
	if err != nil {
		return nil, fmt.Errorf("key cache: %w", err)
	}
	if cfg.CertsURL == "" {
		cfg.CertsURL = FirebaseCertsURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Leeway == 0 {
		cfg.Leeway = 30 * time.Second
	}
	return &FirebaseVerifier{
		projectID: cfg.ProjectID,
		certsURL:  cfg.CertsURL,
		client:    cfg.HTTPClient,
		leeway:    cfg.Leeway,
		keys:      keys,
		now:       time.Now,
	}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	claims := &firebaseClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, fmt.Errorf("missing kid header")
			}
			return v.publicKey(ctx, kid)
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.projectID),
		jwt.WithIssuer(firebaseIssuerAt+v.projectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	if claims.AuthTime > 0 && time.Unix(claims.AuthTime, 0).After(v.now().Add(v.leeway)) {
		return nil, fmt.Errorf("%w: auth_time in the future", ErrInvalidToken)
	}

	return &Identity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
		Role:    claims.Role,
	}, nil
}

func (v *FirebaseVerifier) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if key, ok := v.cached(kid); ok {
		return key, nil
	}
	// one certificate download at a time, whoever is waiting shares it
	_, err, _ := v.group.Do("certs", func() (interface{}, error) {
		if !v.refreshDue() {
			return nil, nil
		}
		return nil, v.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}

	if key, ok := v.cached(kid); ok {
		return key, nil
	}
	return nil, fmt.Errorf("unknown signing key %q", kid)
}

func (v *FirebaseVerifier) cached(kid string) (*rsa.PublicKey, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	entry, ok := v.keys.Get(kid)
	if !ok {
		return nil, false
	}
	if v.now().After(entry.expiresAt) {
		v.keys.Remove(kid)
		return nil, false
	}
	return entry.key, true
}

// refreshDue reports whether the last download is old enough to try again.
func (v *FirebaseVerifier) refreshDue() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastFetch.IsZero() || v.now().Sub(v.lastFetch) >= minRefreshInterval
}

func (v *FirebaseVerifier) refresh(ctx context.Context) error {
	v.mu.Lock()
	v.lastFetch = v.now()
	v.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.certsURL, nil)
	if err != nil {
		return err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch signing certs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch signing certs: %s", resp.Status)
	}

	var certs map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&certs); err != nil {
		return fmt.Errorf("decode signing certs: %w", err)
	}

	expiresAt := v.now().Add(maxAge(resp.Header.Get("Cache-Control")))

	parsed := make(map[string]*rsa.PublicKey, len(certs))
	for kid, pemCert := range certs {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemCert))
		if err != nil {
			return fmt.Errorf("parse signing cert %q: %w", kid, err)
		}
		parsed[kid] = key
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.keys.Purge()
	for kid, key := range parsed {
		v.keys.Add(kid, cachedKey{key: key, expiresAt: expiresAt})
	}
	return nil
}

func maxAge(cacheControl string) time.Duration {
	for _, directive := range strings.Split(cacheControl, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(directive), "=")
		if !ok || !strings.EqualFold(name, "max-age") {
			continue
		}
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultKeyTTL
}
