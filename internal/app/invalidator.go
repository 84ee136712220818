package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"staybook/internal/domain"
)

var ErrBadEvent = errors.New("app: malformed invalidation event")

// Tagged is any cache taking part in tag invalidation.
type Tagged interface {
	Name() string
	Invalidate(ctx context.Context, tags ...string) []string
	InvalidateLocal(tags ...string) []string
}

// Invalidator fans a mutation's tags out to every cache of this instance
// and announces them to the other instances.
type Invalidator struct {
	origin string
	caches []Tagged
	pub    domain.EventPublisher
}

// NewInvalidator: origin identifies this instance so its own events are
// skipped on the way back in. pub may be nil for a single instance.
func NewInvalidator(origin string, pub domain.EventPublisher, caches ...Tagged) *Invalidator {
	return &Invalidator{origin: origin, caches: caches, pub: pub}
}

// Invalidate marks every entry carrying one of tags stale, drops the shared
// copies, and publishes the event. Publishing is best effort.
func (i *Invalidator) Invalidate(ctx context.Context, tags ...string) {
	if len(tags) == 0 {
		return
	}
	for _, c := range i.caches {
		if keys := c.Invalidate(ctx, tags...); len(keys) > 0 {
			log.Debug().Str("cache", c.Name()).Strs("tags", tags).Int("stale", len(keys)).Msg("invalidated")
		}
	}
	if i.pub == nil {
		return
	}
	if err := i.pub.Publish(ctx, domain.InvalidationEvent{Tags: tags, Origin: i.origin}); err != nil {
		log.Warn().Err(err).Strs("tags", tags).Msg("publish invalidation failed")
	}
}

// Handle applies an event published by another instance. The origin already
// cleared the shared backend, so only local entries are touched.
func (i *Invalidator) Handle(ctx context.Context, body []byte) error {
	var ev domain.InvalidationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %v", ErrBadEvent, err)
	}
	if ev.Origin == i.origin {
		return nil
	}
	for _, c := range i.caches {
		c.InvalidateLocal(ev.Tags...)
	}
	return nil
}
