// Package session holds the process-wide authenticated-user state.
//
// The session wraps a single async.Operation that bootstraps the current
// user from a stored credential at startup. Login and register resolve it,
// logout clears it along with the whole query cache, and an HTTP 401 from
// anywhere in the app forces the same teardown plus a reload, exactly once,
// even when several in-flight requests fail together.
package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/kwalsh/bookshelf/internal/api"
	"github.com/kwalsh/bookshelf/internal/async"
	"github.com/kwalsh/bookshelf/internal/library"
	"github.com/kwalsh/bookshelf/internal/query"
)

// CredentialStore persists the bearer token between runs.
type CredentialStore interface {
	Token() (string, error)
	SetToken(token string) error
	ClearToken() error
}

// Bootstrapped list items are fresh for a short window so the first screen
// renders without an immediate refetch.
const bootstrapStaleTime = 5 * time.Second

// Options wire a Session to its collaborators.
type Options struct {
	API   api.Bookshelf
	Cache *query.Cache
	Creds CredentialStore
	// Reload restarts the app at the unauthenticated screen after a 401.
	Reload func()
	// Observer, if set, fires on every session state change.
	Observer func(async.State[*library.User])
}

// Session is the single process-wide auth state. Only this type mutates it;
// everything else reads.
type Session struct {
	api    api.Bookshelf
	cache  *query.Cache
	creds  CredentialStore
	reload func()
	op     *async.Operation[*library.User]

	// armed is true while a user is authenticated; it gates the 401
	// teardown so concurrent failures trigger it exactly once.
	armed atomic.Bool
}

// New constructs an idle session. Call Bootstrap to start it.
func New(opts Options) *Session {
	s := &Session{
		api:    opts.API,
		cache:  opts.Cache,
		creds:  opts.Creds,
		reload: opts.Reload,
	}
	var opOpts []async.Option[*library.User]
	if opts.Observer != nil {
		opOpts = append(opOpts, async.WithObserver(opts.Observer))
	}
	s.op = async.New(opOpts...)
	return s
}

// State returns the current session snapshot. A resolved nil user means
// unauthenticated, not an error.
func (s *Session) State() async.State[*library.User] {
	return s.op.State()
}

// CurrentUser returns the authenticated user, if any.
func (s *Session) CurrentUser() (library.User, bool) {
	st := s.op.State()
	if st.Status != async.StatusResolved || st.Data == nil {
		return library.User{}, false
	}
	return *st.Data, true
}

// Bootstrap exchanges the stored credential for a user profile. An absent or
// invalid token resolves to a nil user. On success the user's list items,
// delivered alongside the profile, are seeded straight into the cache.
func (s *Session) Bootstrap(ctx context.Context) *async.Future[*library.User] {
	return s.op.Run(async.Go(func() (*library.User, error) {
		token, err := s.creds.Token()
		if err != nil || token == "" {
			return nil, nil
		}

		data, err := s.api.Bootstrap(ctx, token)
		if err != nil {
			if api.IsUnauthorized(err) {
				_ = s.creds.ClearToken()
				return nil, nil
			}
			return nil, err
		}

		s.cache.SetQueryData(library.KeyListItems(), data.ListItems,
			query.WithStaleTime(bootstrapStaleTime))

		user := data.User
		if user.Token == "" {
			user.Token = token
		}
		s.armed.Store(true)
		return &user, nil
	}))
}

// Login authenticates and, on success, resolves the session. The returned
// future is for the invoking form's own async state; a failed login rejects
// only that future, never the session itself.
func (s *Session) Login(ctx context.Context, creds api.Credentials) *async.Future[*library.User] {
	return s.authenticate(func() (library.User, error) {
		return s.api.Login(ctx, creds)
	})
}

// Register creates an account and, on success, resolves the session.
func (s *Session) Register(ctx context.Context, creds api.Credentials) *async.Future[*library.User] {
	return s.authenticate(func() (library.User, error) {
		return s.api.Register(ctx, creds)
	})
}

func (s *Session) authenticate(call func() (library.User, error)) *async.Future[*library.User] {
	return async.Go(func() (*library.User, error) {
		user, err := call()
		if err != nil {
			return nil, err
		}
		_ = s.creds.SetToken(user.Token)
		s.armed.Store(true)
		s.op.SetData(&user)
		return &user, nil
	})
}

// Logout clears the persisted credential, evicts every cache entry, and
// resolves the session to no user.
func (s *Session) Logout() {
	s.armed.Store(false)
	_ = s.creds.ClearToken()
	s.cache.Clear()
	s.op.SetData(nil)
}

// HandleUnauthorized is the 401 escalation path, wired as the API client's
// unauthorized hook. The first 401 of an authenticated stretch tears the
// session down and reloads; concurrent 401s are no-ops.
func (s *Session) HandleUnauthorized() {
	if !s.armed.CompareAndSwap(true, false) {
		return
	}
	_ = s.creds.ClearToken()
	s.cache.Clear()
	s.op.SetData(nil)
	if s.reload != nil {
		s.reload()
	}
}

// Close tears down the session's async state; later settlements are dropped.
func (s *Session) Close() {
	s.op.Close()
}
