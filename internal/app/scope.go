package app

import (
	"context"

	"staybook/internal/auth"
	"staybook/internal/querycache"
)

// scope names the caller. Tags use the subject so a mutation reaches every
// session of that user; keys use the token so a forged subject never reads
// another user's entries without upstream seeing the token first.
type scope struct {
	subject string
	token   string
}

func userScope(ctx context.Context) scope {
	var access string
	if s, ok := auth.FromContext(ctx); ok {
		if c, err := s.Credentials(ctx); err == nil {
			access = c.Access
		}
	}
	return scope{subject: auth.Subject(access), token: auth.Fingerprint(access)}
}

// key is the cache key of one resource listing for this caller.
func (s scope) key(resource string, page int) string {
	return querycache.Normalize(querycache.Params{
		"resource":           resource,
		"token":              s.token,
		querycache.PageParam: page,
	})
}
