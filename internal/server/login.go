package server

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/soundcheck/internal/services"
	"github.com/desertthunder/soundcheck/internal/shared"
)

// StateTTL bounds how long an issued OAuth state stays valid.
const StateTTL = 10 * time.Minute

// stateStore remembers issued OAuth states until they are used or expire.
type stateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
	ttl    time.Duration
	now    func() time.Time
}

func newStateStore(ttl time.Duration) *stateStore {
	return &stateStore{states: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

func (s *stateStore) add(state string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, exp := range s.states {
		if now.After(exp) {
			delete(s.states, k)
		}
	}
	s.states[state] = now.Add(s.ttl)
}

// consume reports whether state was issued and is unexpired, and forgets it either way.
func (s *stateStore) consume(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.states[state]
	delete(s.states, state)
	return ok && !s.now().After(exp)
}

// LoginHandler runs the backend half of the authorization code flow.
//
// /login redirects the browser to the provider; /callback exchanges the code and hands the token to the client
// callback boundary as ?token=. Failures reach the client as ?error= with no token.
type LoginHandler struct {
	oauth          services.OAuthService
	clientRedirect string
	states         *stateStore
	logger         *log.Logger
}

// NewLoginHandler creates a [LoginHandler] that finishes at clientRedirect.
func NewLoginHandler(oauth services.OAuthService, clientRedirect string, logger *log.Logger) *LoginHandler {
	return &LoginHandler{
		oauth:          oauth,
		clientRedirect: clientRedirect,
		states:         newStateStore(StateTTL),
		logger:         logger,
	}
}

func (h *LoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := shared.GenerateState()
	if err != nil {
		h.logger.Error("failed to generate state", "error", err)
		WriteError(w, http.StatusInternalServerError, "failed to start login")
		return
	}
	h.states.add(state)

	h.logger.Debug("redirecting to provider", "provider", h.oauth.Name())
	http.Redirect(w, r, h.oauth.AuthURL(state), http.StatusFound)
}

func (h *LoginHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if reason := q.Get("error"); reason != "" {
		h.logger.Warn("authorization denied", "reason", reason)
		h.finish(w, r, url.Values{"error": {reason}})
		return
	}

	if !h.states.consume(q.Get("state")) {
		h.logger.Warn("callback with unknown or expired state")
		h.finish(w, r, url.Values{"error": {"state_mismatch"}})
		return
	}

	code := q.Get("code")
	if code == "" {
		h.finish(w, r, url.Values{"error": {"missing_code"}})
		return
	}

	token, err := h.oauth.Exchange(r.Context(), code)
	if err != nil || token.AccessToken == "" {
		h.logger.Warn("code exchange failed", "error", err)
		h.finish(w, r, url.Values{"error": {"invalid_token"}})
		return
	}

	h.logger.Info("authorization complete", "id", RequestID(r.Context()))
	h.finish(w, r, url.Values{"token": {token.AccessToken}})
}

func (h *LoginHandler) finish(w http.ResponseWriter, r *http.Request, params url.Values) {
	target, err := url.Parse(h.clientRedirect)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "invalid client redirect")
		return
	}
	target.RawQuery = params.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}
