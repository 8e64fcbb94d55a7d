package show

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/james-see/opendmx/pkg/controller"
)

// Play applies the cues of s to app on their original timing. With loop
// set it starts over after s.Length. It returns nil when the show ends,
// ctx ends or the output stops.
func Play(ctx context.Context, s *Show, app controller.Applier, loop bool, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if loop && s.Length <= 0 {
		loop = false
	}

	for pass := 1; ; pass++ {
		start := time.Now()
		logger.Info("show started", "show", s.Name, "cues", len(s.Cues), "pass", pass)
		for _, c := range s.Cues {
			if !sleepUntil(ctx, start.Add(c.At)) {
				return nil
			}
			if err := app.Apply(c.Intent); errors.Is(err, controller.ErrStopped) {
				return nil
			}
		}
		if !loop {
			logger.Info("show finished", "show", s.Name)
			return nil
		}
		if !sleepUntil(ctx, start.Add(s.Length)) {
			return nil
		}
	}
}

func sleepUntil(ctx context.Context, t time.Time) bool {
	d := time.Until(t)
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
