package source

import (
	"context"

	"github.com/kohr2/dashboard-killer-graph-sub002/model"
)

// HealthStatus is the coarse health classification of a source
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// Health is the result of a source health probe
type Health struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Item is one raw unit of content pulled from a source
type Item struct {
	ID       string
	Content  string
	Context  string // extraction context name, may be empty
	Metadata *model.Properties
}

// Source is a finite, pull-based stream of raw items. The sequence is lazy
// and not restartable; Next returns io.EOF once the stream is exhausted.
type Source interface {
	// ID identifies the source instance in run reports
	ID() string
	// Type names the source kind (directory, static, ...)
	Type() string
	Connect(ctx context.Context) error
	// Next returns the next item or io.EOF when the stream ends
	Next(ctx context.Context) (*Item, error)
	Disconnect(ctx context.Context) error
	Health(ctx context.Context) Health
}
