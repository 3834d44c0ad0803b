package controller

import (
	"context"
	"time"

	"github.com/hellocym/SwarmClone/internal/metrics"
)

// supervise launches a module's Run task and its handler task (which pumps
// results_queue -> router, sleeping briefly when empty). Both run under the
// same ctx and stop when it is cancelled; neither can be cancelled on its
// own. When Run completes, running is cleared and any error captured.
func (c *Controller) supervise(ctx context.Context, mm *managedModule) {
	mm.setRunning(true)
	metrics.ModulesLive.WithLabelValues(string(mm.mod.Role())).Inc()

	c.wg.Add(2)

	go func() {
		defer c.wg.Done()
		err := mm.mod.Run(ctx)
		mm.setRunning(false)
		metrics.ModulesLive.WithLabelValues(string(mm.mod.Role())).Dec()
		if err != nil && ctx.Err() == nil {
			mm.setErr(err)
			metrics.ModuleCrashes.WithLabelValues(string(mm.mod.Role()), mm.mod.Name()).Inc()
			c.log.Error("module crashed", "role", mm.mod.Role(), "module", mm.mod.Name(), "error", err)
		}
	}()

	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(handlerPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if m, ok := mm.mod.ResultsQueue().TryPop(); ok {
				c.route(m)
				continue
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}
