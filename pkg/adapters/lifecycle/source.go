// Package lifecycle exposes store change events as a lifecycle.Source.
package lifecycle

import (
	"context"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/mend/pkg/core"
)

type repairSource struct {
	events <-chan core.Event
	out    chan lifecycle.Event
}

// NewSource creates a lifecycle.Source that emits the store events worth
// a repair pass: creations and modifications. Deletions are dropped.
// The emitted values are core.Event.
func NewSource(events <-chan core.Event) lifecycle.Source {
	return &repairSource{
		events: events,
		out:    make(chan lifecycle.Event),
	}
}

func (s *repairSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *repairSource) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-s.events:
				if !ok {
					return nil
				}
				if e.Type == core.EventDelete || e.ID == "" {
					continue
				}
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
