package app

import (
	"context"

	"staybook/internal/domain"
	"staybook/internal/querycache"
)

// ExperienceService lists the curated experiences. Nothing in the BFF
// mutates them, so list pages live until the cache ttl runs out.
type ExperienceService struct {
	api   domain.ExperienceAPI
	cache *querycache.Cache[domain.Page[domain.Experience]]
}

func NewExperienceService(api domain.ExperienceAPI, cache *querycache.Cache[domain.Page[domain.Experience]]) *ExperienceService {
	return &ExperienceService{api: api, cache: cache}
}

func (s *ExperienceService) List(ctx context.Context, page int) (domain.Page[domain.Experience], error) {
	if page < 1 {
		page = 1
	}
	key := querycache.Normalize(querycache.Params{"resource": "experiences", querycache.PageParam: page})
	return s.cache.Fetch(ctx, key, []string{querycache.TagExperiences},
		func(ctx context.Context) (domain.Page[domain.Experience], error) {
			return s.api.ListExperiences(ctx, page)
		})
}

func (s *ExperienceService) Get(ctx context.Context, id int64) (domain.Experience, error) {
	return s.api.GetExperience(ctx, id)
}
