package coordinator

import (
	"context"

	"go.uber.org/multierr"

	"go.viam.com/pathtracker/control"
	"go.viam.com/pathtracker/lookahead"
)

// WindowPublishers fans a window out to every publisher.
type WindowPublishers []WindowPublisher

// PublishWindow publishes to all and combines their errors.
func (pubs WindowPublishers) PublishWindow(ctx context.Context, w *lookahead.Window) error {
	var err error
	for _, p := range pubs {
		err = multierr.Combine(err, p.PublishWindow(ctx, w))
	}
	return err
}

// ActuationPublishers fans actuation commands out to every publisher.
type ActuationPublishers []ActuationPublisher

// PublishActuation publishes to all and combines their errors.
func (pubs ActuationPublishers) PublishActuation(ctx context.Context, in control.Input, out control.Actuation) error {
	var err error
	for _, p := range pubs {
		err = multierr.Combine(err, p.PublishActuation(ctx, in, out))
	}
	return err
}
