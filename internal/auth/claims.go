package auth

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is what the front end needs from an access token: who it belongs
// to and when it lapses. Signatures are the issuer's concern.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

type accessClaims struct {
	UserID any `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// ParseClaims decodes an access token without verifying it.
func ParseClaims(token string) (Claims, error) {
	var ac accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &ac); err != nil {
		return Claims{}, fmt.Errorf("parse token: %w", err)
	}
	out := Claims{Subject: ac.Subject}
	if out.Subject == "" && ac.UserID != nil {
		out.Subject = fmt.Sprint(ac.UserID)
	}
	if ac.ExpiresAt != nil {
		out.ExpiresAt = ac.ExpiresAt.Time
	}
	return out, nil
}

// Subject returns the token owner, "anonymous" without a token, or a
// digest of an opaque token so per-user cache scopes never collide.
func Subject(access string) string {
	if access == "" {
		return "anonymous"
	}
	if c, err := ParseClaims(access); err == nil && c.Subject != "" {
		return c.Subject
	}
	return Fingerprint(access)
}

// Fingerprint names the exact token. Claims are never verified here, so
// anything cached for a caller is keyed by this, not by Subject.
func Fingerprint(access string) string {
	if access == "" {
		return "anonymous"
	}
	sum := sha1.Sum([]byte(access))
	return "tok:" + hex.EncodeToString(sum[:8])
}
