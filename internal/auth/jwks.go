package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/square/go-jose/v3"
	"golang.org/x/time/rate"
)

var (
	ErrKeyNotFound     = errors.New("jwks: signing key not found")
	ErrJWKSRateLimited = errors.New("jwks: refetch rate limited")
)

// JWKS guarda o conjunto de chaves públicas do provedor externo.
// Chaves desconhecidas disparam um novo download, limitado a 5 por minuto.
type JWKS struct {
	uri     string
	client  *http.Client
	ttl     time.Duration
	limiter *rate.Limiter

	mu        sync.RWMutex
	keys      jose.JSONWebKeySet
	fetchedAt time.Time
}

func NewJWKS(uri string, client *http.Client) *JWKS {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &JWKS{
		uri:     uri,
		client:  client,
		ttl:     10 * time.Minute,
		limiter: rate.NewLimiter(rate.Every(time.Minute/5), 5),
	}
}

// Key retorna a chave RSA com o kid informado.
func (j *JWKS) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	j.mu.RLock()
	k, fresh := j.lookup(kid), time.Since(j.fetchedAt) < j.ttl
	j.mu.RUnlock()
	if k != nil && fresh {
		return k, nil
	}
	if !j.limiter.Allow() {
		if k != nil {
			return k, nil
		}
		return nil, ErrJWKSRateLimited
	}
	if err := j.refresh(ctx); err != nil {
		if k != nil {
			return k, nil
		}
		return nil, err
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	if k = j.lookup(kid); k == nil {
		return nil, ErrKeyNotFound
	}
	return k, nil
}

func (j *JWKS) lookup(kid string) *rsa.PublicKey {
	for _, jwk := range j.keys.Key(kid) {
		if pub, ok := jwk.Key.(*rsa.PublicKey); ok {
			return pub
		}
	}
	return nil
}

func (j *JWKS) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.uri, nil)
	if err != nil {
		return err
	}
	resp, err := j.client.Do(req)
	if err != nil {
		return fmt.Errorf("jwks fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks fetch: status %d", resp.StatusCode)
	}
	var set jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("jwks decode: %w", err)
	}
	j.mu.Lock()
	j.keys = set
	j.fetchedAt = time.Now()
	j.mu.Unlock()
	return nil
}

// Verifier aceita tokens HS256 emitidos pelo login local e, se houver JWKS,
// tokens RS256 do provedor externo.
type Verifier struct {
	secret   []byte
	jwks     *JWKS
	audience string
	issuer   string
}

func NewVerifier(secret []byte, jwks *JWKS, audience, issuer string) *Verifier {
	return &Verifier{secret: secret, jwks: jwks, audience: audience, issuer: issuer}
}

func (v *Verifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	methods := []string{jwt.SigningMethodHS256.Alg()}
	if v.jwks != nil {
		methods = append(methods, jwt.SigningMethodRS256.Alg())
	}
	t, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodHMAC:
			return v.secret, nil
		case *jwt.SigningMethodRSA:
			kid, _ := t.Header["kid"].(string)
			return v.jwks.Key(ctx, kid)
		}
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}, jwt.WithValidMethods(methods))
	if err != nil {
		return nil, err
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if _, external := t.Method.(*jwt.SigningMethodRSA); external {
		if err := v.checkExternal(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (v *Verifier) checkExternal(c *Claims) error {
	if v.audience != "" {
		found := false
		for _, a := range c.Audience {
			if a == v.audience {
				found = true
				break
			}
		}
		if !found {
			return jwt.ErrTokenInvalidAudience
		}
	}
	if v.issuer != "" && c.Issuer != v.issuer {
		return jwt.ErrTokenInvalidIssuer
	}
	c.External = true
	// o provedor externo só é configurado para a conta da psicóloga
	if c.Role == "" {
		c.Role = RolePsicologa
	}
	return nil
}
