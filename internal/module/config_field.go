package module

// FieldKind is the wire type of a configuration field, reported via
// ConfigSchema and surfaced by the startup_param control-plane operation.
type FieldKind string

const (
	KindInt       FieldKind = "int"
	KindFloat     FieldKind = "float"
	KindBool      FieldKind = "bool"
	KindString    FieldKind = "str"
	KindSelection FieldKind = "selection"
)

// ConfigField is a single typed, self-describing configuration knob. A
// module's ConfigSchema() returns a slice of these; the controller uses them
// to render startup_param defaults. Incoming `start` config values are
// parsed by each module's own Factory, not checked against these fields.
type ConfigField struct {
	Name     string
	Kind     FieldKind
	Required bool
	Default  any
	Desc     string

	Min      *float64 // only meaningful for KindInt/KindFloat
	Max      *float64
	Step     *float64
	Options  []string // only meaningful for KindSelection
	Password bool     // mask on display; still round-trips through escape/unescape
	Multiline bool
}

// Float returns a pointer to v, for populating ConfigField.Min/Max/Step
// inline at a call site.
func Float(v float64) *float64 { return &v }
