package types

// State represents the processor lifecycle state.
//
// States follow a defined progression:
//
//	StateInit → StateStarting → StateRunning → StateStopping → StateStopped
type State int

const (
	// StateInit is the initial state before Start is called.
	StateInit State = iota

	// StateStarting indicates buckets are being prepared and the first sync is running.
	StateStarting

	// StateRunning indicates the periodic synchronization loop is active.
	StateRunning

	// StateStopping indicates shutdown is in progress.
	StateStopping

	// StateStopped is the terminal state.
	StateStopped
)

// String returns the string representation of the state.
//
// Returns:
//   - string: Human-readable state name
func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}
