package credentials

import (
	"github.com/pkg/errors"
)

const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyRememberMe   = "remember_me"
)

type Scope string

const (
	ScopePersistent Scope = "persistent"
	ScopeSession    Scope = "session"
)

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
}

// Store holds the access/refresh token pair of the signed-in user.
type Store interface {
	AccessToken() (string, error)
	RefreshToken() (string, error)
	RememberMe() (bool, error)
	// Save stores a fresh login. The remember-me preference decides which
	// scope receives the tokens from now on.
	Save(t Tokens, rememberMe bool) error
	// UpdateTokens replaces the pair in the currently selected scope.
	UpdateTokens(t Tokens) error
	// Clear removes every credential key from both scopes.
	Clear() error
}

// ScopedStore selects between a persistent and a session scope using the
// remember_me preference, which itself always lives in the persistent scope.
type ScopedStore struct {
	persistent Storage
	session    Storage
}

var _ Store = (*ScopedStore)(nil)

func NewScopedStore(persistent, session Storage) *ScopedStore {
	return &ScopedStore{persistent: persistent, session: session}
}

func (s *ScopedStore) RememberMe() (bool, error) {
	v, err := s.persistent.Get(KeyRememberMe)
	if err != nil {
		return false, err
	}
	return v == "true", nil
}

// Scope reports which scope tokens are currently read from.
func (s *ScopedStore) Scope() (Scope, error) {
	rm, err := s.RememberMe()
	if err != nil {
		return "", err
	}
	if rm {
		return ScopePersistent, nil
	}
	return ScopeSession, nil
}

func (s *ScopedStore) active() (Storage, error) {
	scope, err := s.Scope()
	if err != nil {
		return nil, err
	}
	if scope == ScopePersistent {
		return s.persistent, nil
	}
	return s.session, nil
}

func (s *ScopedStore) AccessToken() (string, error) {
	st, err := s.active()
	if err != nil {
		return "", err
	}
	return st.Get(KeyAccessToken)
}

func (s *ScopedStore) RefreshToken() (string, error) {
	st, err := s.active()
	if err != nil {
		return "", err
	}
	return st.Get(KeyRefreshToken)
}

func (s *ScopedStore) Save(t Tokens, rememberMe bool) error {
	if t.AccessToken == "" {
		return errors.New("missing access token")
	}
	target, other := s.session, s.persistent
	if rememberMe {
		target, other = s.persistent, s.session
	}
	if err := other.Remove(KeyAccessToken, KeyRefreshToken); err != nil {
		return errors.Wrap(err, "clear previous scope")
	}
	if rememberMe {
		if err := s.persistent.Set(KeyRememberMe, "true"); err != nil {
			return errors.Wrap(err, "save remember_me")
		}
	} else if err := s.persistent.Remove(KeyRememberMe); err != nil {
		return errors.Wrap(err, "clear remember_me")
	}
	return writeTokens(target, t)
}

func (s *ScopedStore) UpdateTokens(t Tokens) error {
	st, err := s.active()
	if err != nil {
		return err
	}
	return writeTokens(st, t)
}

func (s *ScopedStore) Clear() error {
	var firstErr error
	if err := s.persistent.Remove(KeyAccessToken, KeyRefreshToken, KeyRememberMe); err != nil {
		firstErr = errors.Wrap(err, "clear persistent credentials")
	}
	if err := s.session.Remove(KeyAccessToken, KeyRefreshToken, KeyRememberMe); err != nil && firstErr == nil {
		firstErr = errors.Wrap(err, "clear session credentials")
	}
	return firstErr
}

func writeTokens(st Storage, t Tokens) error {
	if err := st.Set(KeyAccessToken, t.AccessToken); err != nil {
		return errors.Wrap(err, "save access token")
	}
	if t.RefreshToken == "" {
		return nil
	}
	if err := st.Set(KeyRefreshToken, t.RefreshToken); err != nil {
		return errors.Wrap(err, "save refresh token")
	}
	return nil
}
