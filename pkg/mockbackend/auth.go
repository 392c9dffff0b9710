package mockbackend

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-go-golems/infravoice/pkg/api"
	"github.com/go-go-golems/infravoice/pkg/services"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type tokenClaims struct {
	Type       string `json:"type"`
	Generation int    `json:"gen"`
	jwt.RegisteredClaims
}

type contextKey string

const userKey contextKey = "mockbackend.user"

// AddUser registers an account and returns its id.
func (s *Server) AddUser(email, username, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(email, username, password)
}

func (s *Server) addUserLocked(email, username, password string) string {
	id := uuid.NewString()
	s.users[strings.ToLower(email)] = &user{
		User: services.User{
			ID:               id,
			Email:            email,
			Username:         username,
			SubscriptionTier: "free",
			APIQuota:         100,
			IsActive:         true,
			CreatedAt:        api.Timestamp{Time: s.opts.Now().UTC()},
		},
		password: password,
	}
	return id
}

func (s *Server) issue(userID, typ string, ttl time.Duration) (string, error) {
	now := s.opts.Now()
	claims := tokenClaims{
		Type:       typ,
		Generation: s.generation,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.opts.SigningKey)
}

func (s *Server) issuePair(userID string) (map[string]string, error) {
	access, err := s.issue(userID, "access", s.opts.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issue(userID, "refresh", s.opts.RefreshTTL)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "bearer",
	}, nil
}

func (s *Server) parse(token, wantType string) (*tokenClaims, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.opts.SigningKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.opts.Now),
	)
	if err != nil {
		return nil, err
	}
	if claims.Type != wantType {
		return nil, errors.Errorf("token type %q, want %q", claims.Type, wantType)
	}
	return &claims, nil
}

func (s *Server) userByIDLocked(id string) *user {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		claims, err := s.parse(token, "access")
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		s.mu.Lock()
		stale := claims.Generation < s.generation || s.revoked[token]
		u := s.userByIDLocked(claims.Subject)
		s.mu.Unlock()
		if stale || u == nil || !u.IsActive {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), u.ID)))
	})
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req services.SignupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	switch {
	case !strings.Contains(req.Email, "@"):
		writeValidation(w, "email", "value is not a valid email address")
		return
	case len(req.Username) < 3:
		writeValidation(w, "username", "String should have at least 3 characters")
		return
	case len(req.Password) < 8:
		writeValidation(w, "password", "String should have at least 8 characters")
		return
	case !strings.ContainsAny(req.Password, "0123456789"):
		writeValidation(w, "password", "Password must contain at least one digit")
		return
	case strings.ToLower(req.Password) == req.Password:
		writeValidation(w, "password", "Password must contain at least one uppercase letter")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[strings.ToLower(req.Email)]; exists {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	for _, u := range s.users {
		if u.Username == req.Username {
			writeDetail(w, http.StatusBadRequest, "Username already taken")
			return
		}
	}
	s.addUserLocked(req.Email, req.Username, req.Password)
	writeJSON(w, http.StatusCreated, s.users[strings.ToLower(req.Email)].User)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[strings.ToLower(req.Email)]
	if u == nil || u.password != req.Password {
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	if !u.IsActive {
		writeDetail(w, http.StatusForbidden, "Account is inactive")
		return
	}
	pair, err := s.issuePair(u.ID)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Login failed")
		return
	}
	u.LastLogin = api.Timestamp{Time: s.opts.Now().UTC()}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	claims, err := s.parse(req.RefreshToken, "refresh")
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userByIDLocked(claims.Subject)
	if u == nil || !u.IsActive {
		writeDetail(w, http.StatusUnauthorized, "User not found or inactive")
		return
	}
	pair, err := s.issuePair(u.ID)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Failed to refresh token")
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	s.revoked[token] = true
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, services.Message{Message: "Successfully logged out"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userByIDLocked(userFromContext(r.Context()))
	if u == nil {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, u.User)
}
