package module

import "github.com/hellocym/SwarmClone/internal/role"

// Base provides the identity and queue plumbing common to every concrete
// module. It is embedded, not inherited from — Go has no class hierarchy, so
// each concrete module embeds Base and implements Run and ConfigSchema
// itself, exactly the two methods Base cannot provide generically.
type Base struct {
	name string
	r    role.Role

	task    *Queue
	results *Queue
}

// NewBase constructs the embeddable identity+queue state for a module
// instance.
func NewBase(name string, r role.Role) Base {
	return Base{
		name:    name,
		r:       r,
		task:    NewQueue(),
		results: NewQueue(),
	}
}

func (b *Base) Name() string         { return b.name }
func (b *Base) Role() role.Role      { return b.r }
func (b *Base) TaskQueue() *Queue    { return b.task }
func (b *Base) ResultsQueue() *Queue { return b.results }
