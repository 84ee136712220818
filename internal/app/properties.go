package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"staybook/internal/domain"
	"staybook/internal/querycache"
	"staybook/internal/wizard"
)

type PropertyAPI interface {
	domain.PropertyAPI
	domain.ImageAPI
}

type PropertyService struct {
	api    PropertyAPI
	cache  *querycache.Cache[domain.Property]
	inv    *Invalidator
	ledger domain.LedgerRepository
}

// NewPropertyService: ledger may be nil, orphaned uploads are then only logged.
func NewPropertyService(api PropertyAPI, cache *querycache.Cache[domain.Property], inv *Invalidator, ledger domain.LedgerRepository) *PropertyService {
	return &PropertyService{api: api, cache: cache, inv: inv, ledger: ledger}
}

func propertyKey(id int64) string { return querycache.PropertyTag(id) }

func (s *PropertyService) Get(ctx context.Context, id int64) (domain.Property, error) {
	return s.cache.Fetch(ctx, propertyKey(id), []string{querycache.PropertyTag(id)},
		func(ctx context.Context) (domain.Property, error) {
			return s.api.GetProperty(ctx, id)
		})
}

func (s *PropertyService) Create(ctx context.Context, in domain.PropertyInput) (domain.Property, error) {
	p, err := s.api.CreateProperty(ctx, in)
	if err != nil {
		return domain.Property{}, err
	}
	s.inv.Invalidate(ctx, querycache.TagResult, querycache.PropertyTag(p.ID))
	return p, nil
}

func (s *PropertyService) Update(ctx context.Context, id int64, in domain.PropertyInput) (domain.Property, error) {
	p, err := s.api.UpdateProperty(ctx, id, in)
	if err != nil {
		return domain.Property{}, err
	}
	s.inv.Invalidate(ctx, querycache.TagResult, querycache.PropertyTag(id))
	return p, nil
}

func (s *PropertyService) Delete(ctx context.Context, id int64) error {
	if err := s.api.DeleteProperty(ctx, id); err != nil {
		return err
	}
	s.inv.Invalidate(ctx, querycache.TagResult, querycache.PropertyTag(id))
	return nil
}

// CreateWithImages uploads refs one by one, then creates the property with
// the resulting image ids. When an upload or the create call fails, the
// images already uploaded are deleted again; ids that cannot be deleted are
// recorded as orphans.
func (s *PropertyService) CreateWithImages(ctx context.Context, in domain.PropertyInput, refs []string, open wizard.Opener, progress wizard.Progress) (domain.Property, error) {
	imgs, err := wizard.UploadSequential(ctx, s.api, open, refs, progress)
	if err != nil {
		s.compensate(ctx, imgs, err)
		return domain.Property{}, err
	}

	in.ImageIDs = append(in.ImageIDs, wizard.ImageIDs(imgs)...)
	p, err := s.Create(ctx, in)
	if err != nil {
		s.compensate(ctx, imgs, err)
		return domain.Property{}, fmt.Errorf("create property: %w", err)
	}
	return p, nil
}

func (s *PropertyService) compensate(ctx context.Context, imgs []domain.Image, cause error) {
	if len(imgs) == 0 {
		return
	}
	// the request context may be the reason we are here
	ctx = context.WithoutCancel(ctx)
	orphans := wizard.Compensate(ctx, s.api, imgs)
	if len(orphans) == 0 {
		return
	}
	if s.ledger == nil {
		log.Error().Ints64("image_ids", orphans).Msg("orphaned images")
		return
	}
	if err := s.ledger.RecordOrphanImages(ctx, orphans, cause.Error()); err != nil {
		log.Error().Err(err).Ints64("image_ids", orphans).Msg("record orphaned images failed")
	}
}
