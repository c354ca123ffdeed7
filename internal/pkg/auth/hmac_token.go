package auth

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/polkiloo/storefront/internal/pkg/signature"
)

// HMACStrategy handles tokens of the form "<base64url(userID:expiresUnix)>.<hex hmac>".
// The auth service and the storefront share the secret.
type HMACStrategy struct {
	secret string
	ttl    time.Duration
	now    func() time.Time
}

func NewHMACStrategy(secret string, opts Options) *HMACStrategy {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &HMACStrategy{secret: secret, ttl: ttl, now: now}
}

func (s *HMACStrategy) IssueToken(userID int64) (string, error) {
	if userID <= 0 {
		return "", fmt.Errorf("issue token: invalid user id %d", userID)
	}
	claims := fmt.Sprintf("%d:%d", userID, s.now().Add(s.ttl).Unix())
	encoded := base64.RawURLEncoding.EncodeToString([]byte(claims))
	return encoded + "." + signature.HMACHex(s.secret, []byte(encoded)), nil
}

func (s *HMACStrategy) ParseToken(token string) (int64, error) {
	encoded, sig, ok := strings.Cut(token, ".")
	if !ok || !signature.Verify(s.secret, []byte(encoded), sig) {
		return 0, ErrInvalidToken
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return 0, ErrInvalidToken
	}
	idPart, expPart, ok := strings.Cut(string(raw), ":")
	if !ok {
		return 0, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || userID <= 0 {
		return 0, ErrInvalidToken
	}
	expires, err := strconv.ParseInt(expPart, 10, 64)
	if err != nil || !s.now().Before(time.Unix(expires, 0)) {
		return 0, ErrInvalidToken
	}
	return userID, nil
}

func (s *HMACStrategy) Name() string {
	return "hmac"
}
