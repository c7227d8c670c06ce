package cips

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

const (
	maxEmailLen    = 63
	maxPasswordLen = 63
)

// unacquired is the sentinel owner value for a user not currently held
// by any connection.
const unacquired int64 = -1

// user is one account in the store. following is mutated only by its
// owning acquirer (per spec's concurrency model); followers is
// mutated by any acquirer following this user and is guarded by
// followersMu.
type user struct {
	uid          int
	email        string
	passwordHash string

	following map[int]struct{}

	followersMu sync.Mutex
	followers   map[int]struct{}

	// acquiredBy holds the owning session's generation token, or
	// unacquired. Modeled as an atomic CAS on an owner-slot field, one
	// of the three try-lock equivalents spec §9 names explicitly.
	acquiredBy atomic.Int64
}

// UserStore is the append-only, uid-indexed account store (C4). All
// public methods are safe for concurrent use.
type UserStore struct {
	mu         sync.Mutex
	users      []*user
	emailIndex map[string]int

	path string
	file *os.File

	nextToken atomic.Int64
}

// NewUserStore returns an empty, in-memory-only store.
func NewUserStore() *UserStore {
	return &UserStore{emailIndex: make(map[string]int)}
}

// Load populates the store from path's "email:hash\n" lines and keeps
// the file open for append on subsequent Add calls. Duplicate email
// lines are tolerated and ignored, matching the tolerant-reload
// contract for a crash mid-append.
func (s *UserStore) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrIO, path, err)
	}

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			f.Close()
			return fmt.Errorf("%w: %s:%d: missing ':' separator", ErrBadFormat, path, lineNo)
		}
		email, hash := parts[0], parts[1]
		s.addLocked(email, hash)
	}
	if err := scanner.Err(); err != nil {
		f.Close()
		return fmt.Errorf("%w: reading %s: %v", ErrIO, path, err)
	}

	s.path = path
	s.file = f
	return nil
}

// Shutdown closes the backing file, if any. Safe to call once.
func (s *UserStore) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// ValidateFormat applies the §4.4 field-format rules for add: email
// and password each in [1,63] bytes, no newline, and email may not
// contain ':' or a space (spec §9(a) makes the no-spaces assumption
// explicit since cips_since's wire format relies on it).
func ValidateFormat(email, password string) error {
	if len(email) < 1 || len(email) > maxEmailLen {
		return fmt.Errorf("%w: email length out of range", ErrBadFormat)
	}
	if strings.ContainsAny(email, "\n:") || strings.ContainsRune(email, ' ') {
		return fmt.Errorf("%w: email contains a forbidden character", ErrBadFormat)
	}
	if len(password) < 1 || len(password) > maxPasswordLen {
		return fmt.Errorf("%w: password length out of range", ErrBadFormat)
	}
	if strings.ContainsRune(password, '\n') {
		return fmt.Errorf("%w: password contains a newline", ErrBadFormat)
	}
	return nil
}

// Add registers a new account, hashing password and appending
// "email:hash\n" to the backing file if one is configured.
func (s *UserStore) Add(email, password string) error {
	if err := ValidateFormat(email, password); err != nil {
		return err
	}

	hash, err := HashPassword(password, "")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.emailIndex[email]; exists {
		return ErrAlreadyExists
	}

	if s.file != nil {
		if _, err := fmt.Fprintf(s.file, "%s:%s\n", email, hash); err != nil {
			return fmt.Errorf("%w: append: %v", ErrIO, err)
		}
		if err := s.file.Sync(); err != nil {
			return fmt.Errorf("%w: sync: %v", ErrIO, err)
		}
	}

	s.addLocked(email, hash)
	return nil
}

// addLocked inserts email/hash at the next uid. Duplicate emails are
// silently ignored (the crash-mid-append tolerance Load relies on);
// callers that need to distinguish duplicates check emailIndex first.
// mu must be held.
func (s *UserStore) addLocked(email, hash string) {
	if _, exists := s.emailIndex[email]; exists {
		return
	}
	u := &user{
		uid:          len(s.users),
		email:        email,
		passwordHash: hash,
		following:    make(map[int]struct{}),
		followers:    make(map[int]struct{}),
	}
	u.acquiredBy.Store(unacquired)
	s.users = append(s.users, u)
	s.emailIndex[email] = u.uid
}

// Acquire authenticates email/password and, on success, atomically
// claims exclusive ownership of that user's uid. Order of checks is
// email existence, then password match, then acquisition, matching
// §4.4's algorithm note so Busy is distinguished from BadPassword.
func (s *UserStore) Acquire(email, password string) (uid int, token int64, err error) {
	u, ok := s.lookupByEmail(email)
	if !ok {
		return 0, 0, ErrNoSuchEmail
	}

	match, err := VerifyPassword(password, u.passwordHash)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if !match {
		return 0, 0, ErrBadPassword
	}

	tok := s.nextToken.Add(1)
	if !u.acquiredBy.CompareAndSwap(unacquired, tok) {
		return 0, 0, ErrBusy
	}
	return u.uid, tok, nil
}

// Release relinquishes ownership of uid if token is its current
// owner. Releasing a uid not held by token is a silent no-op, matching
// the "whether exit is normal or cancelled" cleanup contract (§5):
// cleanup code may call Release without first checking liveness.
func (s *UserStore) Release(uid int, token int64) {
	u, err := s.userByUID(uid)
	if err != nil {
		return
	}
	u.acquiredBy.CompareAndSwap(token, unacquired)
}

func (s *UserStore) userByUID(uid int) (*user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uid < 0 || uid >= len(s.users) {
		return nil, ErrNotAcquired
	}
	return s.users[uid], nil
}

// userByEmailLocked returns the user for email, if any, and its uid.
// Must be called with mu held (or via lookupByEmail, which handles
// locking).
func (s *UserStore) lookupByEmail(email string) (*user, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.emailIndex[email]
	if !ok {
		return nil, false
	}
	return s.users[idx], true
}

func (s *UserStore) requireAcquired(uid int, token int64) (*user, error) {
	u, err := s.userByUID(uid)
	if err != nil {
		return nil, err
	}
	if u.acquiredBy.Load() != token {
		return nil, ErrNotAcquired
	}
	return u, nil
}

// EmailOf returns the email of an acquired uid.
func (s *UserStore) EmailOf(uid int, token int64) (string, error) {
	u, err := s.requireAcquired(uid, token)
	if err != nil {
		return "", err
	}
	return u.email, nil
}

// emailOfUnchecked returns the email for any valid uid, used
// internally by follow/unfollow/log filtering where acquisition of the
// *target* is irrelevant.
func (s *UserStore) emailOfUnchecked(uid int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uid < 0 || uid >= len(s.users) {
		return ""
	}
	return s.users[uid].email
}

// FollowingOf returns a snapshot of the emails uid follows.
func (s *UserStore) FollowingOf(uid int, token int64) ([]string, error) {
	u, err := s.requireAcquired(uid, token)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(u.following))
	for target := range u.following {
		out = append(out, s.emailOfUnchecked(target))
	}
	return out, nil
}

// FollowersOf returns a snapshot of the emails following uid.
func (s *UserStore) FollowersOf(uid int, token int64) ([]string, error) {
	u, err := s.requireAcquired(uid, token)
	if err != nil {
		return nil, err
	}
	u.followersMu.Lock()
	out := make([]string, 0, len(u.followers))
	for follower := range u.followers {
		out = append(out, s.emailOfUnchecked(follower))
	}
	u.followersMu.Unlock()
	return out, nil
}

// Follow adds email to uid's following set and uid to email's
// followers set, preserving invariant I3. Self-follow resolves to
// NoSuchEmail (wire code 1), matching the original implementation's
// "skip own uid while searching" behavior that the specification's
// per-user code table (0 ok / 1 nonexistent / 2 already) preserves —
// see DESIGN.md.
func (s *UserStore) Follow(uid int, token int64, targetEmail string) error {
	u, err := s.requireAcquired(uid, token)
	if err != nil {
		return err
	}

	target, ok := s.lookupByEmail(targetEmail)
	if !ok || target.uid == uid {
		return ErrNoSuchEmail
	}

	if _, already := u.following[target.uid]; already {
		return ErrAlreadyFollowing
	}

	u.following[target.uid] = struct{}{}

	target.followersMu.Lock()
	target.followers[uid] = struct{}{}
	target.followersMu.Unlock()

	return nil
}

// Unfollow is the symmetric inverse of Follow.
func (s *UserStore) Unfollow(uid int, token int64, targetEmail string) error {
	u, err := s.requireAcquired(uid, token)
	if err != nil {
		return err
	}

	target, ok := s.lookupByEmail(targetEmail)
	if !ok || target.uid == uid {
		return ErrNoSuchEmail
	}

	if _, following := u.following[target.uid]; !following {
		return ErrNotFollowing
	}

	delete(u.following, target.uid)

	target.followersMu.Lock()
	delete(target.followers, uid)
	target.followersMu.Unlock()

	return nil
}
