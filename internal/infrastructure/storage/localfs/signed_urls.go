package localfs

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SignedURLResolver issues expiring HMAC-signed URLs for stored assets, so
// image links in answers work without exposing the storage tree.
type SignedURLResolver struct {
	baseURL string
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
}

func NewSignedURLResolver(baseURL, secret string, ttl time.Duration) (*SignedURLResolver, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("asset url secret is required")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &SignedURLResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

func (r *SignedURLResolver) URL(storageKey string) (string, error) {
	if storageKey == "" {
		return "", fmt.Errorf("empty storage key")
	}
	expires := r.now().Add(r.ttl).Unix()
	sig := r.sign(storageKey, expires)
	return fmt.Sprintf("%s/v1/assets/%s?exp=%d&sig=%s",
		r.baseURL, url.PathEscape(storageKey), expires, sig), nil
}

// Verify checks the signature and expiry for an incoming asset request.
func (r *SignedURLResolver) Verify(storageKey string, expires int64, sig string) error {
	if r.now().Unix() > expires {
		return fmt.Errorf("asset url expired")
	}
	expected := r.sign(storageKey, expires)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return fmt.Errorf("asset url signature mismatch")
	}
	return nil
}

func (r *SignedURLResolver) sign(storageKey string, expires int64) string {
	mac := hmac.New(sha256.New, r.secret)
	mac.Write([]byte(storageKey))
	mac.Write([]byte("|"))
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}
