package controller

import (
	"github.com/hellocym/SwarmClone/internal/message"
	"github.com/hellocym/SwarmClone/internal/metrics"
)

// route delivers m to one copy of every live module whose role is in
// m.Destinations, applying the drop-on-full policy, then records it in the
// bounded history buffer. This is the only place messages cross between
// modules; called from each module's handler goroutine as it drains that
// module's results_queue.
func (c *Controller) route(m *message.Message) {
	c.mu.Lock()
	for _, r := range m.Destinations {
		for _, mm := range c.liveModulesOf(r) {
			if running, _ := mm.snapshot(); !running {
				continue
			}
			if !mm.mod.TaskQueue().TryPush(m) {
				metrics.QueueOverflow.WithLabelValues(string(r), m.Name).Inc()
				c.log.Warn("queue overflow: dropping message",
					"role", r, "module", mm.mod.Name(), "message", m.Name)
			}
		}
	}
	c.mu.Unlock()

	c.hist.record(m.DictRepr())
}
