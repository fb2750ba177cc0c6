package events

import (
	"context"
	"errors"
)

// Fanout publishes every event to each member in order.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, topic string, event any) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, topic, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
