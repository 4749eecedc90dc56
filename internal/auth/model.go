package auth

// Identity is stored in the request context after a session token resolves.
type Identity struct {
	UserID int64
	Token  string
}

// Decision is the outcome of an ownership check.
type Decision int

const (
	Allowed Decision = iota
	Forbidden
	Unauthenticated
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Forbidden:
		return "forbidden"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}
