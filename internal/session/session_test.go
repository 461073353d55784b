package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kwalsh/bookshelf/internal/api"
	"github.com/kwalsh/bookshelf/internal/async"
	"github.com/kwalsh/bookshelf/internal/library"
	"github.com/kwalsh/bookshelf/internal/query"
)

// memCreds is an in-memory CredentialStore.
type memCreds struct {
	mu    sync.Mutex
	token string
}

func (m *memCreds) Token() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *memCreds) SetToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *memCreds) ClearToken() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

// fakeAPI stubs the three calls the session makes.
type fakeAPI struct {
	api.Bookshelf

	login     func(ctx context.Context, creds api.Credentials) (library.User, error)
	register  func(ctx context.Context, creds api.Credentials) (library.User, error)
	bootstrap func(ctx context.Context, token string) (api.BootstrapData, error)
}

func (f *fakeAPI) Login(ctx context.Context, creds api.Credentials) (library.User, error) {
	return f.login(ctx, creds)
}

func (f *fakeAPI) Register(ctx context.Context, creds api.Credentials) (library.User, error) {
	return f.register(ctx, creds)
}

func (f *fakeAPI) Bootstrap(ctx context.Context, token string) (api.BootstrapData, error) {
	return f.bootstrap(ctx, token)
}

func newSession(f *fakeAPI, creds *memCreds, reload func()) (*Session, *query.Cache) {
	cache := query.New(query.Options{})
	s := New(Options{API: f, Cache: cache, Creds: creds, Reload: reload})
	return s, cache
}

func TestBootstrap_NoTokenResolvesNilUser(t *testing.T) {
	s, _ := newSession(&fakeAPI{}, &memCreds{}, nil)
	defer s.Close()

	fut := s.Bootstrap(context.Background())
	user, err := fut.Wait()
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if user != nil {
		t.Fatalf("bootstrapped user = %+v, want nil for missing token", user)
	}
	if st := s.State(); st.Status != async.StatusResolved {
		t.Fatalf("session status = %v, want resolved", st.Status)
	}
	if _, ok := s.CurrentUser(); ok {
		t.Fatal("CurrentUser reported a user with no token stored")
	}
}

func TestBootstrap_SeedsListItemsIntoCache(t *testing.T) {
	items := []library.ListItem{{ID: "li1", BookID: "b1", OwnerID: "u1"}}
	f := &fakeAPI{
		bootstrap: func(ctx context.Context, token string) (api.BootstrapData, error) {
			if token != "tok" {
				t.Errorf("bootstrap token = %q, want tok", token)
			}
			return api.BootstrapData{
				User:      library.User{ID: "u1", Username: "kody"},
				ListItems: items,
			}, nil
		},
	}
	s, cache := newSession(f, &memCreds{token: "tok"}, nil)
	defer s.Close()

	user, err := s.Bootstrap(context.Background()).Wait()
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if user == nil || user.ID != "u1" {
		t.Fatalf("bootstrapped user = %+v", user)
	}
	if user.Token != "tok" {
		t.Fatalf("user token = %q, want stored token carried over", user.Token)
	}

	data, ok := cache.Get(library.KeyListItems())
	if !ok {
		t.Fatal("list items not seeded into cache")
	}
	if got := data.([]library.ListItem); len(got) != 1 || got[0].ID != "li1" {
		t.Fatalf("seeded items = %+v", got)
	}
}

func TestBootstrap_UnauthorizedTokenClearsAndResolvesNil(t *testing.T) {
	f := &fakeAPI{
		bootstrap: func(ctx context.Context, token string) (api.BootstrapData, error) {
			return api.BootstrapData{}, &api.Error{StatusCode: 401, Message: "token expired"}
		},
	}
	creds := &memCreds{token: "stale"}
	s, _ := newSession(f, creds, nil)
	defer s.Close()

	user, err := s.Bootstrap(context.Background()).Wait()
	if err != nil {
		t.Fatalf("Bootstrap with stale token errored: %v", err)
	}
	if user != nil {
		t.Fatalf("bootstrapped user = %+v, want nil", user)
	}
	if tok, _ := creds.Token(); tok != "" {
		t.Fatalf("stored token = %q, want cleared", tok)
	}
}

func TestBootstrap_ServerErrorRejects(t *testing.T) {
	boom := &api.Error{StatusCode: 500, Message: "boom"}
	f := &fakeAPI{
		bootstrap: func(ctx context.Context, token string) (api.BootstrapData, error) {
			return api.BootstrapData{}, boom
		},
	}
	s, _ := newSession(f, &memCreds{token: "tok"}, nil)
	defer s.Close()

	if _, err := s.Bootstrap(context.Background()).Wait(); !errors.Is(err, boom) {
		t.Fatalf("Bootstrap error = %v, want server failure", err)
	}
	if st := s.State(); st.Status != async.StatusRejected {
		t.Fatalf("session status = %v, want rejected", st.Status)
	}
}

func TestLogin_SuccessResolvesSessionAndStoresToken(t *testing.T) {
	f := &fakeAPI{
		login: func(ctx context.Context, creds api.Credentials) (library.User, error) {
			return library.User{ID: "u1", Username: creds.Username, Token: "fresh"}, nil
		},
	}
	creds := &memCreds{}
	s, _ := newSession(f, creds, nil)
	defer s.Close()

	user, err := s.Login(context.Background(), api.Credentials{Username: "kody", Password: "pw"}).Wait()
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user == nil || user.Username != "kody" {
		t.Fatalf("logged-in user = %+v", user)
	}
	if tok, _ := creds.Token(); tok != "fresh" {
		t.Fatalf("stored token = %q, want fresh token persisted", tok)
	}
	if got, ok := s.CurrentUser(); !ok || got.ID != "u1" {
		t.Fatalf("CurrentUser = %+v, %v", got, ok)
	}
}

func TestLogin_FailureLeavesSessionUntouched(t *testing.T) {
	denied := &api.Error{StatusCode: 400, Message: "invalid credentials"}
	f := &fakeAPI{
		login: func(ctx context.Context, creds api.Credentials) (library.User, error) {
			return library.User{}, denied
		},
	}
	s, _ := newSession(f, &memCreds{}, nil)
	defer s.Close()

	if _, err := s.Login(context.Background(), api.Credentials{}).Wait(); !errors.Is(err, denied) {
		t.Fatalf("Login error = %v, want rejection", err)
	}
	// The form's future rejected; the session state did not transition.
	if st := s.State(); st.Status != async.StatusIdle {
		t.Fatalf("session status after failed login = %v, want idle", st.Status)
	}
}

func TestRegister_SuccessResolvesSession(t *testing.T) {
	f := &fakeAPI{
		register: func(ctx context.Context, creds api.Credentials) (library.User, error) {
			return library.User{ID: "u2", Username: creds.Username, Token: "newtok"}, nil
		},
	}
	s, _ := newSession(f, &memCreds{}, nil)
	defer s.Close()

	user, err := s.Register(context.Background(), api.Credentials{Username: "hannah", Password: "pw"}).Wait()
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user == nil || user.ID != "u2" {
		t.Fatalf("registered user = %+v", user)
	}
}

func TestLogout_ClearsEverything(t *testing.T) {
	f := &fakeAPI{
		login: func(ctx context.Context, creds api.Credentials) (library.User, error) {
			return library.User{ID: "u1", Token: "tok"}, nil
		},
	}
	creds := &memCreds{}
	s, cache := newSession(f, creds, nil)
	defer s.Close()

	if _, err := s.Login(context.Background(), api.Credentials{}).Wait(); err != nil {
		t.Fatalf("Login: %v", err)
	}
	cache.SetQueryData(library.KeyListItems(), []library.ListItem{{ID: "li1"}})

	s.Logout()

	if tok, _ := creds.Token(); tok != "" {
		t.Fatalf("stored token = %q, want cleared", tok)
	}
	if got := cache.Len(); got != 0 {
		t.Fatalf("cache entries after logout = %d, want 0", got)
	}
	if _, ok := s.CurrentUser(); ok {
		t.Fatal("CurrentUser reported a user after logout")
	}
}

func TestHandleUnauthorized_RunsTeardownExactlyOnce(t *testing.T) {
	var reloads atomic.Int32
	f := &fakeAPI{
		login: func(ctx context.Context, creds api.Credentials) (library.User, error) {
			return library.User{ID: "u1", Token: "tok"}, nil
		},
	}
	creds := &memCreds{}
	s, cache := newSession(f, creds, func() { reloads.Add(1) })
	defer s.Close()

	if _, err := s.Login(context.Background(), api.Credentials{}).Wait(); err != nil {
		t.Fatalf("Login: %v", err)
	}
	cache.SetQueryData(library.KeyListItems(), []library.ListItem{{ID: "li1"}})

	// Several requests failing with 401 at once all call the hook.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.HandleUnauthorized()
		}()
	}
	wg.Wait()

	if got := reloads.Load(); got != 1 {
		t.Fatalf("reloads = %d, want exactly 1", got)
	}
	if tok, _ := creds.Token(); tok != "" {
		t.Fatalf("stored token = %q, want cleared", tok)
	}
	if got := cache.Len(); got != 0 {
		t.Fatalf("cache entries = %d, want 0", got)
	}
	if _, ok := s.CurrentUser(); ok {
		t.Fatal("CurrentUser reported a user after 401 teardown")
	}
}

func TestHandleUnauthorized_NoOpBeforeAuthentication(t *testing.T) {
	var reloads atomic.Int32
	s, _ := newSession(&fakeAPI{}, &memCreds{}, func() { reloads.Add(1) })
	defer s.Close()

	// A 401 during bootstrap of an unauthenticated session must not reload.
	s.HandleUnauthorized()

	if got := reloads.Load(); got != 0 {
		t.Fatalf("reloads = %d, want 0 while unauthenticated", got)
	}
}

func TestHandleUnauthorized_RearmsAfterNextLogin(t *testing.T) {
	var reloads atomic.Int32
	f := &fakeAPI{
		login: func(ctx context.Context, creds api.Credentials) (library.User, error) {
			return library.User{ID: "u1", Token: "tok"}, nil
		},
	}
	s, _ := newSession(f, &memCreds{}, func() { reloads.Add(1) })
	defer s.Close()

	if _, err := s.Login(context.Background(), api.Credentials{}).Wait(); err != nil {
		t.Fatalf("Login: %v", err)
	}
	s.HandleUnauthorized()
	if _, err := s.Login(context.Background(), api.Credentials{}).Wait(); err != nil {
		t.Fatalf("second Login: %v", err)
	}
	s.HandleUnauthorized()

	if got := reloads.Load(); got != 2 {
		t.Fatalf("reloads = %d, want one per authenticated stretch", got)
	}
}

func TestObserver_SeesSessionTransitions(t *testing.T) {
	states := make(chan async.State[*library.User], 8)
	cache := query.New(query.Options{})
	f := &fakeAPI{
		bootstrap: func(ctx context.Context, token string) (api.BootstrapData, error) {
			return api.BootstrapData{User: library.User{ID: "u1"}}, nil
		},
	}
	s := New(Options{
		API:      f,
		Cache:    cache,
		Creds:    &memCreds{token: "tok"},
		Observer: func(st async.State[*library.User]) { states <- st },
	})
	defer s.Close()

	s.Bootstrap(context.Background())

	next := func() async.State[*library.User] {
		select {
		case st := <-states:
			return st
		case <-time.After(2 * time.Second):
			t.Fatal("no observed transition")
			panic("unreachable")
		}
	}
	if st := next(); st.Status != async.StatusPending {
		t.Fatalf("first transition = %v, want pending", st.Status)
	}
	if st := next(); st.Status != async.StatusResolved || st.Data == nil || st.Data.ID != "u1" {
		t.Fatalf("second transition = %+v, want resolved user", st)
	}
}
