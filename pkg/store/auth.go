package store

import (
	"context"
	"sync"

	"github.com/go-go-golems/infravoice/pkg/credentials"
	"github.com/go-go-golems/infravoice/pkg/services"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// AuthAPI is the subset of services.AuthService the store drives.
type AuthAPI interface {
	Login(ctx context.Context, req services.LoginRequest) (credentials.Tokens, error)
	Signup(ctx context.Context, req services.SignupRequest) (*services.User, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*services.User, error)
}

type AuthStore struct {
	notifier

	api   AuthAPI
	creds credentials.Store

	mu      sync.Mutex
	user    *services.User
	loading bool
}

func NewAuthStore(api AuthAPI, creds credentials.Store) *AuthStore {
	return &AuthStore{api: api, creds: creds}
}

// User returns a copy of the signed-in user, or nil.
func (s *AuthStore) User() *services.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *AuthStore) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil
}

func (s *AuthStore) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *AuthStore) set(fn func()) {
	s.mu.Lock()
	fn()
	s.mu.Unlock()
	s.notify()
}

func (s *AuthStore) SetUser(u *services.User) {
	s.set(func() { s.user = u })
}

// Login authenticates, stores the token pair in the scope picked by
// rememberMe and loads the profile.
func (s *AuthStore) Login(ctx context.Context, email, password string, rememberMe bool) error {
	s.set(func() { s.loading = true })
	defer s.set(func() { s.loading = false })

	tokens, err := s.api.Login(ctx, services.LoginRequest{Email: email, Password: password})
	if err != nil {
		return err
	}
	if err := s.creds.Save(tokens, rememberMe); err != nil {
		return errors.Wrap(err, "save credentials")
	}
	u, err := s.api.Me(ctx)
	if err != nil {
		return err
	}
	s.set(func() { s.user = u })
	log.Debug().Str("user", u.Username).Bool("remember_me", rememberMe).Msg("logged in")
	return nil
}

// Signup creates the account. It does not log in.
func (s *AuthStore) Signup(ctx context.Context, email, username, password string) (*services.User, error) {
	s.set(func() { s.loading = true })
	defer s.set(func() { s.loading = false })

	return s.api.Signup(ctx, services.SignupRequest{Email: email, Username: username, Password: password})
}

// Logout tells the backend and always clears local state, even when the
// call fails. The backend error is returned for reporting only.
func (s *AuthStore) Logout(ctx context.Context) error {
	var apiErr error
	if tok, _ := s.creds.AccessToken(); tok != "" {
		apiErr = s.api.Logout(ctx)
	}
	clearErr := s.creds.Clear()
	s.set(func() { s.user = nil })
	if clearErr != nil {
		return errors.Wrap(clearErr, "clear credentials")
	}
	return apiErr
}

// LoadUser re-derives the session from stored credentials. Without an
// access token, or when the profile cannot be fetched, the store ends up
// signed out.
func (s *AuthStore) LoadUser(ctx context.Context) error {
	tok, err := s.creds.AccessToken()
	if err != nil {
		return errors.Wrap(err, "read credentials")
	}
	if tok == "" {
		s.set(func() { s.user = nil })
		return nil
	}

	s.set(func() { s.loading = true })
	u, err := s.api.Me(ctx)
	s.set(func() {
		s.loading = false
		s.user = u
	})
	if err != nil {
		log.Debug().Err(err).Msg("load user")
		return err
	}
	return nil
}
