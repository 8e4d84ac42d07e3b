package midigomidi

import (
	"context"
	"slices"
	"time"

	"github.com/leandrodaf/posemidi/sdk/contracts"
)

// DefaultRescanInterval is how often Watch polls the port lists.
const DefaultRescanInterval = time.Second

// Watch polls the driver's port names every interval and calls onChange from
// the watching goroutine whenever the set of inputs or outputs differs from
// the previous poll. It returns when ctx is done.
func Watch(ctx context.Context, drv Driver, interval time.Duration, logger contracts.Logger, onChange func()) {
	if interval <= 0 {
		interval = DefaultRescanInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	previous := portNames(drv, logger)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current := portNames(drv, logger)
			if !slices.Equal(previous, current) {
				logger.Info("MIDI device list changed",
					logger.Field().Int("ports", len(current)))
				onChange()
			}
			previous = current
		}
	}
}

func portNames(drv Driver, logger contracts.Logger) []string {
	var names []string
	ins, err := drv.Ins()
	if err != nil {
		logger.Error("midi: list inputs failed", logger.Field().Error("error", err))
	}
	for _, in := range ins {
		names = append(names, "in:"+in.String())
	}
	outs, err := drv.Outs()
	if err != nil {
		logger.Error("midi: list outputs failed", logger.Field().Error("error", err))
	}
	for _, out := range outs {
		names = append(names, "out:"+out.String())
	}
	slices.Sort(names)
	return names
}
