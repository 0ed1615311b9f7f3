package mta

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pradeepg78/TrainSense/internal/config"
	"github.com/pradeepg78/TrainSense/models"
)

// HealthCheck probes every configured feed group concurrently and
// reports per-group status. Probes bypass the snapshot cache so the
// report reflects the upstream right now; successful probes refresh
// the cache so a following arrivals request reuses them.
func (c *Client) HealthCheck(ctx context.Context) *models.FeedHealthReport {
	report := &models.FeedHealthReport{
		Timestamp: time.Now().UTC(),
		Feeds:     make([]models.FeedGroupHealth, len(c.tables.FeedGroups)),
	}

	var wg sync.WaitGroup
	for i, entry := range c.tables.FeedGroups {
		i, entry := i, entry
		wg.Add(1)
		go func() {
			defer wg.Done()
			report.Feeds[i] = c.probe(ctx, entry)
		}()
	}
	wg.Wait()

	return report
}

func (c *Client) probe(ctx context.Context, entry config.FeedGroupEntry) models.FeedGroupHealth {
	start := time.Now()

	snap, err := c.fetchDecode(ctx, entry)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		h := models.FeedGroupHealth{
			Group:        entry.Group,
			Status:       models.FeedStatusUnavailable,
			ResponseTime: elapsed,
		}
		var fe *FeedError
		if errors.As(err, &fe) {
			h.Cause = fe.Cause.Error()
		} else {
			h.Cause = err.Error()
		}
		return h
	}

	if c.cacheTTL > 0 {
		_ = c.cache.SetWithExpire(entry.Group, snap, c.cacheTTL)
	}

	return models.FeedGroupHealth{
		Group:         entry.Group,
		Status:        models.FeedStatusOK,
		Entities:      snap.Entities,
		ResponseTime:  elapsed,
		FeedTimestamp: snap.FeedTimestamp,
	}
}
