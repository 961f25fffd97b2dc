package domain

// Actor is the already-resolved identity invoking a command. Privilege
// resolution (the admin list) happens at the edge; the core only checks
// the flag.
type Actor struct {
	ID         int64
	Privileged bool
}
