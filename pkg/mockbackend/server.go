// Package mockbackend is an in-process stand-in for the infravoice backend.
// It serves canned transcriptions, Terraform, scans and estimates over the
// same routes and envelopes as the real API, keeps deployments in memory and
// can be told to fail specific routes. Tests and `infravoice dev
// mock-backend` both run it.
package mockbackend

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-go-golems/infravoice/pkg/services"
	"github.com/rs/zerolog/log"
)

const (
	DefaultEmail    = "demo@infravoice.dev"
	DefaultUsername = "demo"
	DefaultPassword = "Password123"
)

type Options struct {
	// SigningKey signs issued tokens. A fixed development key is used when
	// empty.
	SigningKey []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Now is the clock used for timestamps and token expiry.
	Now func() time.Time
	// NoSeed skips creating the demo user.
	NoSeed bool
}

type failure struct {
	status int
	detail string
	times  int
}

type user struct {
	services.User
	password string
}

type Server struct {
	opts Options

	mu          sync.Mutex
	users       map[string]*user // by email
	revoked     map[string]bool  // access tokens invalidated by logout or Expire
	deployments map[string]*services.Deployment
	order       []string
	scans       map[string]services.SecurityScan
	costs       map[string]services.CostEstimate
	history     []services.TranscriptionRecord
	failures    map[string]*failure
	calls       map[string]int
	generation  int
}

func New(opts Options) *Server {
	if len(opts.SigningKey) == 0 {
		opts.SigningKey = []byte("infravoice-mock-signing-key")
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 30 * time.Minute
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 7 * 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		opts:        opts,
		users:       map[string]*user{},
		revoked:     map[string]bool{},
		deployments: map[string]*services.Deployment{},
		scans:       map[string]services.SecurityScan{},
		costs:       map[string]services.CostEstimate{},
		failures:    map[string]*failure{},
		calls:       map[string]int{},
	}
	if !opts.NoSeed {
		s.AddUser(DefaultEmail, DefaultUsername, DefaultPassword)
	}
	return s
}

// Handler returns the router serving /api/v1.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", s.route("auth/signup", s.signup))
			r.Post("/login", s.route("auth/login", s.login))
			r.Post("/refresh", s.route("auth/refresh", s.refresh))
			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Post("/logout", s.route("auth/logout", s.logout))
				r.Get("/me", s.route("auth/me", s.me))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Post("/voice/transcribe", s.route("voice/transcribe", s.transcribe))
			r.Get("/voice/history", s.route("voice/history", s.voiceHistory))

			r.Post("/code/generate", s.route("code/generate", s.generate))
			r.Get("/code/{id}", s.route("code/get", s.getCode))
			r.Put("/code/{id}", s.route("code/update", s.updateCode))

			r.Post("/security/scan", s.route("security/scan", s.scan))
			r.Get("/security/{id}", s.route("security/get", s.getScan))

			r.Post("/cost/estimate", s.route("cost/estimate", s.estimate))
			r.Get("/cost/{id}/cost", s.route("cost/get", s.getCost))

			r.Get("/deployment/", s.route("deployment/list", s.listDeployments))
			r.Get("/deployment/stats", s.route("deployment/stats", s.stats))
			r.Get("/deployment/{id}", s.route("deployment/get", s.getDeployment))
			r.Post("/deployment/{id}/deploy", s.route("deployment/deploy", s.deploy))
			r.Delete("/deployment/{id}", s.route("deployment/destroy", s.destroy))
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	return r
}

// Fail makes the next `times` calls of route answer status with detail.
// times <= 0 fails until ClearFailures. Route names are "<area>/<action>",
// e.g. "code/generate" or "deployment/deploy".
func (s *Server) Fail(route string, status int, detail string, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = &failure{status: status, detail: detail, times: times}
}

func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = map[string]*failure{}
}

// Calls reports how often route was hit, failures included.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// ExpireAccessTokens invalidates every access token issued so far. Refresh
// tokens stay valid.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

func (s *Server) route(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[name]++
		f := s.failures[name]
		var status int
		var detail string
		if f != nil {
			status, detail = f.status, f.detail
			if f.times > 0 {
				f.times--
				if f.times == 0 {
					delete(s.failures, name)
				}
			}
		}
		s.mu.Unlock()

		if f != nil {
			writeDetail(w, status, detail)
			return
		}
		h(w, r)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Str("request_id", r.Header.Get("X-Request-ID")).
			Dur("took", time.Since(start)).
			Msg("mock backend")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

type validationError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func writeValidation(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"detail": []validationError{{Loc: []string{"body", field}, Msg: msg, Type: "value_error"}},
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeValidation(w, "body", "Invalid JSON body")
		return false
	}
	return true
}
