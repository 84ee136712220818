package cli

import (
	"context"
	"fmt"
	"io"

	"staybook/internal/adapters/marketplace"
	"staybook/internal/auth"
)

// client bundles the upstream API with the persisted session.
type client struct {
	api     *marketplace.API
	session *auth.Session
	store   auth.Store
}

func newClient(stderr io.Writer) (*client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	api, err := marketplace.NewAPI(cfg.endpoints())
	if err != nil {
		return nil, err
	}
	path, err := credentialsPath()
	if err != nil {
		return nil, err
	}
	store := auth.NewFallbackStore(auth.NewFileStore(path))
	s := auth.NewSession(store, api)
	s.OnLogout(func(reason error) {
		if reason != nil {
			fmt.Fprintf(stderr, "Session ended (%v). Run 'staybook login' to sign in again.\n", reason)
		}
	})
	return &client{api: api, session: s, store: store}, nil
}

// ctx attaches the session so every upstream call shares it.
func (c *client) ctx(parent context.Context) context.Context {
	return auth.NewContext(parent, c.session)
}
