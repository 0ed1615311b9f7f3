package models

import "time"

// Feed group status constants for /api/realtime/health.
const (
	FeedStatusOK          = "ok"
	FeedStatusUnavailable = "unavailable"
)

// FeedGroupHealth is the probe result for a single realtime feed group.
type FeedGroupHealth struct {
	Group         string  `json:"group"`
	Status        string  `json:"status"` // "ok" | "unavailable"
	Cause         string  `json:"cause,omitempty"`
	Entities      int     `json:"entities"`
	ResponseTime  float64 `json:"response_time"` // seconds
	FeedTimestamp int64   `json:"feed_timestamp,omitempty"`
}

// FeedHealthReport is the full /api/realtime/health payload.
type FeedHealthReport struct {
	Timestamp time.Time         `json:"timestamp"`
	Feeds     []FeedGroupHealth `json:"feeds"`
}

// Healthy reports whether at least one feed group is serving data.
func (r *FeedHealthReport) Healthy() bool {
	for _, f := range r.Feeds {
		if f.Status == FeedStatusOK {
			return true
		}
	}
	return false
}
