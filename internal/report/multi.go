package report

import (
	"context"
	"errors"

	"worksim/internal/domain"
	"worksim/internal/engine"
)

// Multi fans a day out to every sink and joins their errors.
type Multi []engine.StatsSink

func (m Multi) WriteDay(ctx context.Context, day int, stats []domain.DayStats) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.WriteDay(ctx, day, stats); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
