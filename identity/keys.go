package identity

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HMACKey verifies HS256 tokens with a shared secret.
type HMACKey []byte

func (k HMACKey) Methods() []string { return []string{jwt.SigningMethodHS256.Alg()} }

func (k HMACKey) Key(context.Context, string) (any, error) { return []byte(k), nil }

// RSAKey verifies RS256 tokens with a single public key.
type RSAKey struct{ Public *rsa.PublicKey }

func ParseRSAKey(pemData string) (*RSAKey, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemData))
	if err != nil {
		return nil, fmt.Errorf("parse rsa public key: %w", err)
	}
	return &RSAKey{Public: key}, nil
}

func (k *RSAKey) Methods() []string { return []string{jwt.SigningMethodRS256.Alg()} }

func (k *RSAKey) Key(context.Context, string) (any, error) { return k.Public, nil }

// CertSet resolves RS256 keys by kid from a remote JSON object mapping key
// ids to PEM certificates, the format Firebase publishes for ID tokens.
// Certificates are cached until the max-age announced by the endpoint.
type CertSet struct {
	url    string
	client *http.Client
	now    func() time.Time

	mu      sync.Mutex
	keys    map[string]*rsa.PublicKey
	expires time.Time
}

func NewCertSet(url string, client *http.Client) *CertSet {
	if client == nil {
		client = http.DefaultClient
	}
	return &CertSet{url: url, client: client, now: time.Now}
}

func (s *CertSet) Methods() []string { return []string{jwt.SigningMethodRS256.Alg()} }

func (s *CertSet) Key(ctx context.Context, kid string) (any, error) {
	if kid == "" {
		return nil, fmt.Errorf("token has no kid")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keys == nil || !s.now().Before(s.expires) {
		if err := s.refresh(ctx); err != nil {
			return nil, err
		}
	}
	key, ok := s.keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown kid %q", kid)
	}
	return key, nil
}

func (s *CertSet) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("build certs request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch certs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch certs: %s", resp.Status)
	}

	var raw map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return fmt.Errorf("decode certs: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(raw))
	for kid, certPEM := range raw {
		block, _ := pem.Decode([]byte(certPEM))
		if block == nil {
			return fmt.Errorf("cert %q: no pem block", kid)
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return fmt.Errorf("cert %q: %w", kid, err)
		}
		pub, ok := cert.PublicKey.(*rsa.PublicKey)
		if !ok {
			return fmt.Errorf("cert %q: not an rsa key", kid)
		}
		keys[kid] = pub
	}

	s.keys = keys
	s.expires = s.now().Add(maxAge(resp.Header.Get("Cache-Control")))
	return nil
}

// maxAge extracts max-age from a Cache-Control header, defaulting to one
// minute.
func maxAge(header string) time.Duration {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if v, ok := strings.CutPrefix(part, "max-age="); ok {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return time.Minute
}
