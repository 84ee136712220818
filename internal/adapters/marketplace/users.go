package marketplace

import (
	"context"
	"net/http"

	"staybook/internal/auth"
	"staybook/internal/domain"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// Login exchanges credentials for a token pair. It never uses a session:
// a 401 here means bad credentials, not an expired token.
func (a *API) Login(ctx context.Context, email, password string) (domain.Credentials, error) {
	var out domain.Credentials
	err := a.users.anonymous(ctx, op{
		method: http.MethodPost, path: "/auth/login/", route: "POST /auth/login/",
		in: loginRequest{Email: email, Password: password}, out: &out,
	})
	return out, err
}

// Refresh is the auth.Refresher used by sessions.
func (a *API) Refresh(ctx context.Context, refresh string) (domain.Credentials, error) {
	var out domain.Credentials
	err := a.users.anonymous(ctx, op{
		method: http.MethodPost, path: "/auth/token/refresh/", route: "POST /auth/token/refresh/",
		in: refreshRequest{Refresh: refresh}, out: &out,
	})
	return out, err
}

func (a *API) Logout(ctx context.Context, refresh string) error {
	return a.users.do(ctx, op{
		method: http.MethodPost, path: "/auth/logout/", route: "POST /auth/logout/",
		in: refreshRequest{Refresh: refresh}, kind: auth.AuthCall,
	})
}

// Me is a regular call: an expired access token is refreshed, not fatal.
func (a *API) Me(ctx context.Context) (domain.User, error) {
	var u domain.User
	err := a.users.do(ctx, op{
		method: http.MethodGet, path: "/auth/me/", route: "GET /auth/me/",
		kind: auth.Regular, out: &u,
	})
	return u, err
}
