package module

import "errors"

// Error taxonomy: kinds the control plane distinguishes by type, not by
// stringly-typed class name.
var (
	// ErrConfigConflict: attempt to register a second LLM module, or other
	// role-count violations.
	ErrConfigConflict = errors.New("config conflict")
	// ErrInvalidRole: attempt to register a module with CONTROLLER or
	// unspecified role.
	ErrInvalidRole = errors.New("invalid role")
	// ErrUnknownModule: start names a module not present in the registry.
	ErrUnknownModule = errors.New("unknown module")
	// ErrConstruction: a module's factory returned an error.
	ErrConstruction = errors.New("construction error")
)

// CrashError wraps the error a module's Run returned, for storage on the
// controller's module record and surfacing via get_status.
type CrashError struct {
	ModuleName string
	Err        error
}

func (e *CrashError) Error() string {
	return e.ModuleName + ": " + e.Err.Error()
}

func (e *CrashError) Unwrap() error { return e.Err }
