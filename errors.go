package cacheplugin

import (
	"errors"
	"fmt"
)

var (
	ErrNotOpen        = errors.New("cacheplugin: handle is not open")
	ErrAlreadyOpen    = errors.New("cacheplugin: handle is already open")
	ErrClosed         = errors.New("cacheplugin: handle is closed")
	ErrModuleNotFound = errors.New("cacheplugin: module not found")
	ErrModulesClosed  = errors.New("cacheplugin: module registry is closed")
	ErrInvalidConfig  = errors.New("cacheplugin: invalid configuration")

	// ErrResolverUnavailable and ErrBackendUnavailable match InitErrors of the
	// corresponding kind through errors.Is.
	ErrResolverUnavailable = errors.New("cacheplugin: resolver unavailable")
	ErrBackendUnavailable  = errors.New("cacheplugin: backend unavailable")
)

// InitErrorKind names the sub-resource that could not be acquired during open.
type InitErrorKind int

const (
	ResolverUnavailable InitErrorKind = iota + 1
	BackendUnavailable
)

func (k InitErrorKind) String() string {
	switch k {
	case ResolverUnavailable:
		return "ResolverUnavailable"
	case BackendUnavailable:
		return "BackendUnavailable"
	default:
		return "Unknown"
	}
}

// InitError reports a failed open. Every partially acquired resource has been
// released by the time it is returned.
type InitError struct {
	Kind   InitErrorKind
	Module string
	Err    error
}

func (e *InitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cacheplugin: %s (module %q): %v", e.Kind, e.Module, e.Err)
	}
	return fmt.Sprintf("cacheplugin: %s (module %q)", e.Kind, e.Module)
}

func (e *InitError) Unwrap() error { return e.Err }

// Is matches the kind sentinels.
func (e *InitError) Is(target error) bool {
	switch target {
	case ErrResolverUnavailable:
		return e.Kind == ResolverUnavailable
	case ErrBackendUnavailable:
		return e.Kind == BackendUnavailable
	}
	return false
}

// IsKind reports whether err carries an InitError of kind.
func IsKind(err error, kind InitErrorKind) bool {
	var initErr *InitError
	if errors.As(err, &initErr) {
		return initErr.Kind == kind
	}
	return false
}

// SetError writes err onto the host's error key as metadata.
func SetError(errorKey *Key, err error) {
	if errorKey == nil || err == nil {
		return
	}
	errorKey.SetMeta("error", "cache")
	errorKey.SetMeta("error/module", pluginName)
	errorKey.SetMeta("error/reason", err.Error())
	var initErr *InitError
	if errors.As(err, &initErr) {
		errorKey.SetMeta("error/kind", initErr.Kind.String())
		errorKey.SetMeta("error/submodule", initErr.Module)
		return
	}
	if errors.Is(err, ErrInvalidConfig) {
		errorKey.SetMeta("error/kind", "InvalidConfig")
	}
}
