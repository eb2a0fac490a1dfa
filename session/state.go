package session

// State enumerates the session lifecycle.
type State int

const (
	// Uninitialized means Initialize has not run yet.
	Uninitialized State = iota
	// Initializing means restoration is in flight.
	Initializing
	// Authenticated means a valid credential is current.
	Authenticated
	// Unauthenticated means no usable credential exists.
	Unauthenticated
	// Renewing means a silent renewal is in flight.
	Renewing
	// LoggedOut means the session was terminated explicitly.
	LoggedOut
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	case Renewing:
		return "renewing"
	case LoggedOut:
		return "loggedOut"
	}
	return "unknown"
}
