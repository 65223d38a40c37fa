package replication

import (
	"context"
	"errors"
)

// MultiSink delivers to every sink in order. A request succeeds only when
// every sink accepts it, so sinks must tolerate redelivery.
type MultiSink []Sink

// Send calls every sink and joins their errors.
func (m MultiSink) Send(ctx context.Context, req Request) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(ctx, req); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
