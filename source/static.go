package source

import (
	"context"
	"fmt"
	"io"

	"github.com/kohr2/dashboard-killer-graph-sub002/helper"
)

// StaticSource streams a fixed in-memory item list. Used by examples and
// tests; ConnectErr makes connection failure reproducible.
type StaticSource struct {
	Name       string
	Items      []Item
	ConnectErr error

	position  int
	connected bool
}

func (s *StaticSource) ID() string {
	if s.Name != "" {
		return s.Name
	}
	return "static"
}

func (s *StaticSource) Type() string {
	return "static"
}

func (s *StaticSource) Connect(ctx context.Context) error {
	if s.ConnectErr != nil {
		return s.ConnectErr
	}
	s.position = 0
	s.connected = true
	return nil
}

func (s *StaticSource) Next(ctx context.Context) (*Item, error) {
	if !s.connected {
		return nil, helper.NewError("next item", fmt.Errorf("source is not connected"))
	}
	if s.position >= len(s.Items) {
		return nil, io.EOF
	}

	item := s.Items[s.position]
	s.position++
	return &item, nil
}

func (s *StaticSource) Disconnect(ctx context.Context) error {
	s.connected = false
	return nil
}

func (s *StaticSource) Health(ctx context.Context) Health {
	if s.ConnectErr != nil {
		return Health{Status: StatusUnhealthy, Message: s.ConnectErr.Error()}
	}
	if len(s.Items) == 0 {
		return Health{Status: StatusDegraded, Message: "no items configured"}
	}
	return Health{Status: StatusHealthy}
}
