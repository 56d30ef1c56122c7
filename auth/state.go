package auth

// State is the Controller's position in the session lifecycle
type State int

const (
	// StateAnonymous has no session; the process started without one or the user logged out
	StateAnonymous State = iota
	// StateAuthenticated holds a session whose access token is attached to requests
	StateAuthenticated
	// StateExpiring is transient while the access token is being refreshed
	StateExpiring
	// StateLoggedOut is entered when the backend rejected the session. Only a new login leaves it.
	StateLoggedOut
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	case StateExpiring:
		return "expiring"
	case StateLoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

// HasSession is true for the states that carry a session record
func (s State) HasSession() bool {
	return s == StateAuthenticated || s == StateExpiring
}
