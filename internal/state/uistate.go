// Package state exposes a consistent, race-free view of task data to
// the presentation layer. Each machine owns a single goroutine that
// serializes all transitions; the UI only ever reads the resulting
// values.
package state

// Kind discriminates the three UI state cases. Consumers are expected
// to switch over all three; there is no fourth case.
type Kind int

const (
	// KindLoading means no data is available yet. It is the initial value.
	KindLoading Kind = iota
	// KindSuccess means Data holds the authoritative value currently
	// known, from the local cache (fresh or stale).
	KindSuccess
	// KindError means the last operation failed. Cached optionally
	// retains the last good value for display.
	KindError
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindLoading:
		return "loading"
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// UIState is the tagged variant consumed by the presentation layer.
// Values are ephemeral and never persisted.
type UIState[T any] struct {
	Kind Kind

	// Data is valid only when Kind is KindSuccess.
	Data T

	// Message is valid only when Kind is KindError.
	Message string

	// Cached is the last good value, carried by KindError so the UI
	// can keep rendering it under an error banner. Nil when no data
	// was ever known.
	Cached *T
}

// Loading returns the initial no-data-yet state.
func Loading[T any]() UIState[T] {
	return UIState[T]{Kind: KindLoading}
}

// Success returns a state carrying the authoritative value.
func Success[T any](data T) UIState[T] {
	return UIState[T]{Kind: KindSuccess, Data: data}
}

// Error returns a failure state with a human-readable message and an
// optional last good value.
func Error[T any](message string, cached *T) UIState[T] {
	return UIState[T]{Kind: KindError, Message: message, Cached: cached}
}
