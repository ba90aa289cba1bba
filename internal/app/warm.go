package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// Warm loads the first page of every resource so the cache has something to
// serve before the first outage. Failures are logged and ignored.
func (s *Service) Warm(ctx context.Context, pageSize, workers int) {
	if workers <= 0 {
		workers = 1
	}
	loads := []struct {
		name string
		load func(context.Context) (int, error)
	}{
		{s.Bookings.Name(), func(ctx context.Context) (int, error) {
			p, err := s.Bookings.FetchPage(ctx, 0, pageSize)
			return len(p.Results), err
		}},
		{s.Hotels.Name(), func(ctx context.Context) (int, error) {
			p, err := s.Hotels.FetchPage(ctx, 0, pageSize)
			return len(p.Results), err
		}},
		{s.Rooms.Name(), func(ctx context.Context) (int, error) {
			p, err := s.Rooms.FetchPage(ctx, 0, pageSize)
			return len(p.Results), err
		}},
	}

	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup
	for _, l := range loads {
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("warm-up aborted")
			break
		}
		wg.Add(1)
		go func(name string, load func(context.Context) (int, error)) {
			defer wg.Done()
			defer sem.Release(1)

			n, err := load(ctx)
			if err != nil {
				log.Warn().Str("resource", name).Err(err).Msg("warm-up failed")
				return
			}
			log.Info().Str("resource", name).Int("items", n).Msg("warm-up ok")
		}(l.name, l.load)
	}
	wg.Wait()
}
