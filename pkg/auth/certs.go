package auth

import (
	"context"
	"crypto/rsa"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	planthttp "github.com/plantnet/plantnet-server/pkg/http"
	"github.com/plantnet/plantnet-server/pkg/logger"
)

// GoogleCertsURL publishes the x509 certificates that sign Firebase ID tokens.
const GoogleCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

const defaultCertTTL = time.Hour

// CertSource fetches and caches Google's signing certificates, honouring
// the Cache-Control max-age of the response.
type CertSource struct {
	url string
	now func() time.Time

	mu      sync.RWMutex
	keys    map[string]*rsa.PublicKey
	expires time.Time
}

func NewCertSource(url string) *CertSource {
	return &CertSource{url: url, now: time.Now}
}

// Key returns the key for kid, refreshing the set when it is stale or
// the kid is unknown (keys rotate).
func (s *CertSource) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	s.mu.RLock()
	key, ok := s.keys[kid]
	fresh := s.now().Before(s.expires)
	s.mu.RUnlock()

	if ok && fresh {
		return key, nil
	}

	if err := s.refresh(ctx); err != nil {
		if ok {
			logger.WithCtx(ctx).Warn("auth: cert refresh failed, using cached key", "error", err)
			return key, nil
		}
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if key, ok = s.keys[kid]; !ok {
		return nil, fmt.Errorf("auth: unknown key id %q", kid)
	}
	return key, nil
}

func (s *CertSource) refresh(ctx context.Context) error {
	resp, err := planthttp.Get(s.url).
		WithContext(ctx).
		Timeout(5*time.Second).
		Retry(2, 200*time.Millisecond).
		Send()
	if err != nil {
		return fmt.Errorf("auth: fetch certs: %w", err)
	}
	if err := resp.Throw(); err != nil {
		return fmt.Errorf("auth: fetch certs: %w", err)
	}

	var pems map[string]string
	if err := resp.JSON(&pems); err != nil {
		return fmt.Errorf("auth: decode certs: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(pems))
	for kid, pem := range pems {
		k, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
		if err != nil {
			return fmt.Errorf("auth: parse cert %s: %w", kid, err)
		}
		keys[kid] = k
	}

	s.mu.Lock()
	s.keys = keys
	s.expires = s.now().Add(maxAge(resp.Header("Cache-Control")))
	s.mu.Unlock()
	return nil
}

// maxAge parses "public, max-age=19302, must-revalidate".
func maxAge(cacheControl string) time.Duration {
	for _, part := range strings.Split(cacheControl, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || !strings.EqualFold(k, "max-age") {
			continue
		}
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultCertTTL
}
