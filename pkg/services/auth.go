package services

import (
	"context"
	"net/http"

	"github.com/go-go-golems/infravoice/pkg/api"
	"github.com/go-go-golems/infravoice/pkg/credentials"
	"github.com/pkg/errors"
)

type User struct {
	ID               string        `json:"id"`
	Email            string        `json:"email"`
	Username         string        `json:"username"`
	SubscriptionTier string        `json:"subscription_tier"`
	APIQuota         int           `json:"api_quota"`
	APICallsUsed     int           `json:"api_calls_used"`
	IsActive         bool          `json:"is_active"`
	IsVerified       bool          `json:"is_verified"`
	CreatedAt        api.Timestamp `json:"created_at"`
	LastLogin        api.Timestamp `json:"last_login"`
}

// QuotaRemaining is how many generation calls the account has left.
func (u User) QuotaRemaining() int {
	if r := u.APIQuota - u.APICallsUsed; r > 0 {
		return r
	}
	return 0
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthService talks to the auth endpoints. It never touches the credential
// store; callers decide where the returned tokens go.
type AuthService struct {
	d Doer
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (credentials.Tokens, error) {
	var t credentials.Tokens
	err := s.d.Do(ctx, api.Request{
		Method:    http.MethodPost,
		Path:      "auth/login",
		Body:      api.JSONBody(req),
		Anonymous: true,
	}, &t)
	if err != nil {
		return credentials.Tokens{}, err
	}
	if t.AccessToken == "" {
		return credentials.Tokens{}, errors.New("login response carried no access token")
	}
	return t, nil
}

func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*User, error) {
	var u User
	err := s.d.Do(ctx, api.Request{
		Method:    http.MethodPost,
		Path:      "auth/signup",
		Body:      api.JSONBody(req),
		Anonymous: true,
	}, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *AuthService) Logout(ctx context.Context) error {
	return s.d.Do(ctx, api.Request{Method: http.MethodPost, Path: "auth/logout"}, nil)
}

// Refresh exchanges refreshToken for a new pair. The api client refreshes on
// its own; this backs `infravoice refresh`.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (credentials.Tokens, error) {
	var t credentials.Tokens
	err := s.d.Do(ctx, api.Request{
		Method:    http.MethodPost,
		Path:      "auth/refresh",
		Body:      api.JSONBody(map[string]string{"refresh_token": refreshToken}),
		Anonymous: true,
	}, &t)
	return t, err
}

func (s *AuthService) Me(ctx context.Context) (*User, error) {
	var u User
	if err := s.d.Do(ctx, api.Request{Method: http.MethodGet, Path: "auth/me"}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
