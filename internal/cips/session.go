package cips

import "log/slog"

// Session is the per-connection state machine (ConnectionState in the
// design). Owned exclusively by the worker serving the connection;
// never touched by other workers.
type Session struct {
	loggedIn bool
	uid      int
	token    int64

	// oversizedCount tracks consecutive oversized-frame violations for
	// the defense in §4.6; reset is never required since hitting the
	// threshold terminates the connection.
	oversizedCount int

	logger *slog.Logger
}

// NewSession returns a fresh, unauthenticated session.
func NewSession(logger *slog.Logger) *Session {
	return &Session{logger: logger}
}

// Logger implements ConnectionLogger.
func (s *Session) Logger() *slog.Logger {
	return s.logger
}

// IsLoggedIn reports whether the session currently holds an acquired uid.
func (s *Session) IsLoggedIn() bool {
	return s.loggedIn
}

// UID returns the acquired uid; only valid when IsLoggedIn is true.
func (s *Session) UID() int {
	return s.uid
}

// setAuthenticated transitions Unauthenticated -> Authenticated(uid).
func (s *Session) setAuthenticated(uid int, token int64) {
	s.loggedIn = true
	s.uid = uid
	s.token = token
}

// clearAuthenticated transitions Authenticated -> Unauthenticated.
func (s *Session) clearAuthenticated() {
	s.loggedIn = false
	s.uid = 0
	s.token = 0
}

// RegisterOversized increments the oversized-command counter and
// reports whether the connection has now hit the termination
// threshold.
func (s *Session) RegisterOversized(threshold int) bool {
	s.oversizedCount++
	return s.oversizedCount >= threshold
}

// ReleaseIfAuthenticated releases any acquired uid; safe to call
// whether or not the session is authenticated, and idempotent — this
// is the cleanup hook invoked on both normal quit and cancellation.
func (s *Session) ReleaseIfAuthenticated(store *UserStore) {
	if !s.loggedIn {
		return
	}
	store.Release(s.uid, s.token)
	s.clearAuthenticated()
}
