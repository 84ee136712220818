package app

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"staybook/internal/querycache"
)

// Warm loads page 1 of each location search into the shared cache with at
// most workers requests in flight. It returns how many searches succeeded.
func Warm(ctx context.Context, s *SearchService, locations []string, workers int) (int, error) {
	if workers < 1 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var (
		wg sync.WaitGroup
		ok atomic.Int32
	)
	for _, loc := range locations {
		if loc == "" {
			continue
		}
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return int(ok.Load()), err
		}
		wg.Add(1)
		go func(loc string) {
			defer wg.Done()
			defer sem.Release(1)

			res, err := s.Search(ctx, querycache.Params{"location": loc, querycache.PageParam: 1})
			if err != nil {
				log.Warn().Str("location", loc).Err(err).Msg("warm failed")
				return
			}
			ok.Add(1)
			log.Info().Str("location", loc).Int("items", len(res.Items)).Int("total", res.Total).Msg("warm ok")
		}(loc)
	}
	wg.Wait()
	return int(ok.Load()), nil
}
