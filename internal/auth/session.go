// Package auth owns the credential state shared by every upstream call:
// storage of the access/refresh pair and the single-retry refresh flow
// taken on an authorization failure.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"staybook/internal/adapters/observability"
	"staybook/internal/domain"
)

var ErrNoRefreshToken = errors.New("auth: no refresh token")

const refreshTimeout = 15 * time.Second

type State int

const (
	Authorized State = iota
	UnauthorizedRetry
	LoggedOut
)

func (s State) String() string {
	switch s {
	case Authorized:
		return "authorized"
	case UnauthorizedRetry:
		return "unauthorized-retry"
	case LoggedOut:
		return "logged-out"
	}
	return "unknown"
}

// Kind separates regular endpoints from the auth endpoints whose own
// failure ends the session.
type Kind int

const (
	Regular Kind = iota
	AuthCall
)

// Call sends one request using the given access token ("" for anonymous).
type Call func(ctx context.Context, access string) error

type Refresher interface {
	Refresh(ctx context.Context, refresh string) (domain.Credentials, error)
}

// Session is the explicit credential context handed to each request.
type Session struct {
	store     Store
	refresher Refresher
	sf        singleflight.Group

	mu        sync.Mutex
	state     State
	onLogout  []func(error)
	onRefresh []func(domain.Credentials)
}

func NewSession(store Store, refresher Refresher) *Session {
	s := &Session{store: store, refresher: refresher, state: LoggedOut}
	if c, err := store.Load(context.Background()); err == nil && !c.Empty() {
		s.state = Authorized
	}
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnLogout registers fn to run each time the session drops to logged-out.
func (s *Session) OnLogout(fn func(reason error)) {
	s.mu.Lock()
	s.onLogout = append(s.onLogout, fn)
	s.mu.Unlock()
}

// OnRefresh registers fn to receive credentials issued by a refresh.
func (s *Session) OnRefresh(fn func(domain.Credentials)) {
	s.mu.Lock()
	s.onRefresh = append(s.onRefresh, fn)
	s.mu.Unlock()
}

func (s *Session) Credentials(ctx context.Context) (domain.Credentials, error) {
	return s.store.Load(ctx)
}

// Login stores freshly issued credentials and marks the session authorized.
func (s *Session) Login(ctx context.Context, c domain.Credentials) error {
	if err := s.store.Save(ctx, c); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	s.transition(Authorized)
	return nil
}

// Do runs call with the current access token. An authorization failure on a
// regular call triggers one refresh and exactly one replay. An auth call
// failing, a missing refresh token or a rejected refresh end the session and
// surface the original error; a refresh cut short by a context does not.
func (s *Session) Do(ctx context.Context, kind Kind, call Call) error {
	creds, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}

	err = call(ctx, creds.Access)
	if !errors.Is(err, domain.ErrUnauthorized) {
		return err
	}

	if kind == AuthCall {
		s.logout(ctx, err)
		return err
	}

	s.transition(UnauthorizedRetry)
	fresh, rerr := s.refresh(ctx, creds.Access)
	if errors.Is(rerr, context.Canceled) || errors.Is(rerr, context.DeadlineExceeded) {
		// abandoned or timed out, not rejected: keep the credentials
		s.transition(Authorized)
		return rerr
	}
	if rerr != nil {
		log.Warn().Err(rerr).Msg("token refresh failed")
		s.logout(ctx, err)
		return err
	}
	s.transition(Authorized)
	return call(ctx, fresh.Access)
}

// refresh runs at most one refresh at a time; concurrent callers wait for
// and share its result. A caller whose token was already replaced by an
// earlier refresh gets the stored credentials without another round trip.
func (s *Session) refresh(ctx context.Context, staleAccess string) (domain.Credentials, error) {
	ch := s.sf.DoChan("refresh", func() (any, error) {
		// shared by every waiter, so it must outlive the caller that started it
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		cur, err := s.store.Load(ctx)
		if err != nil {
			return nil, err
		}
		if cur.Access != "" && cur.Access != staleAccess {
			return cur, nil
		}
		if cur.Refresh == "" || s.refresher == nil {
			return nil, ErrNoRefreshToken
		}
		fresh, err := s.refresher.Refresh(ctx, cur.Refresh)
		if err != nil {
			return nil, err
		}
		if fresh.Refresh == "" {
			fresh.Refresh = cur.Refresh
		}
		if err := s.store.Save(ctx, fresh); err != nil {
			return nil, fmt.Errorf("save credentials: %w", err)
		}
		s.mu.Lock()
		hooks := append([]func(domain.Credentials){}, s.onRefresh...)
		s.mu.Unlock()
		for _, fn := range hooks {
			fn(fresh)
		}
		return fresh, nil
	})
	select {
	case <-ctx.Done():
		return domain.Credentials{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return domain.Credentials{}, r.Err
		}
		return r.Val.(domain.Credentials), nil
	}
}

// Logout clears the stored credentials. The optional revoke call is the
// upstream logout; it runs as an auth call so its failure cannot loop.
func (s *Session) Logout(ctx context.Context, revoke func(ctx context.Context, refresh string) error) error {
	creds, _ := s.store.Load(ctx)
	var rerr error
	if revoke != nil && creds.Refresh != "" {
		rerr = s.Do(ctx, AuthCall, func(ctx context.Context, _ string) error {
			return revoke(ctx, creds.Refresh)
		})
	}
	s.logout(ctx, nil)
	if rerr != nil && !errors.Is(rerr, domain.ErrUnauthorized) {
		return rerr
	}
	return nil
}

func (s *Session) logout(ctx context.Context, reason error) {
	if err := s.store.Clear(ctx); err != nil {
		log.Warn().Err(err).Msg("clear credentials failed")
	}
	s.mu.Lock()
	was := s.state
	s.state = LoggedOut
	hooks := append([]func(error){}, s.onLogout...)
	s.mu.Unlock()

	if was == LoggedOut {
		return
	}
	observability.ObserveAuth(LoggedOut.String())
	for _, fn := range hooks {
		fn(reason)
	}
}

func (s *Session) transition(to State) {
	s.mu.Lock()
	changed := s.state != to
	s.state = to
	s.mu.Unlock()
	if changed {
		observability.ObserveAuth(to.String())
	}
}

type ctxKey struct{}

// NewContext attaches s to ctx for the upstream client.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}
