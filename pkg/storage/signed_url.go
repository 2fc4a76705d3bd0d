package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidToken = errors.New("invalid download token")
	ErrTokenExpired = errors.New("download token expired")
)

// Link is the content of a signed download token.
type Link struct {
	Owner     string
	Path      string
	ExpiresAt time.Time
}

// SignedURLSigner creates and validates HMAC-signed download tokens of the
// form owner.expiry.path.signature.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate signs a token granting access to path on behalf of owner.
func (s *SignedURLSigner) Generate(owner, path string) (string, time.Time, error) {
	if owner == "" || path == "" || strings.Contains(owner, ".") {
		return "", time.Time{}, fmt.Errorf("owner without dots and path are required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	exp := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(path))
	token := strings.Join([]string{owner, exp, encodedPath, s.sign(owner, exp, encodedPath)}, ".")
	return token, expiresAt, nil
}

// Parse validates a token. Expired tokens are rejected unless allowExpired is set.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (Link, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return Link{}, ErrInvalidToken
	}
	owner, exp, encodedPath, signature := parts[0], parts[1], parts[2], parts[3]
	if !hmac.Equal([]byte(s.sign(owner, exp, encodedPath)), []byte(signature)) {
		return Link{}, ErrInvalidToken
	}
	rawPath, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return Link{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	expUnix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return Link{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	link := Link{Owner: owner, Path: string(rawPath), ExpiresAt: time.Unix(expUnix, 0)}
	if !allowExpired && s.now().After(link.ExpiresAt) {
		return Link{}, ErrTokenExpired
	}
	return link, nil
}

func (s *SignedURLSigner) sign(owner, exp, encodedPath string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(owner + "|" + exp + "|" + encodedPath))
	return hex.EncodeToString(mac.Sum(nil))
}
