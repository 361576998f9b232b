// Package auth is the authentication decision engine: given a Credential it
// creates or validates a Crowd session, maps groups to roles and returns a
// principal snapshot, or a classified *Failure. It also owns the refresh
// policy for principals kept in the host session.
package auth
