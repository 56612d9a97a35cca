package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/desertthunder/soundcheck/internal/services"
	"github.com/desertthunder/soundcheck/internal/shared"
)

// SpotifyAPI is the upstream the proxy forwards to. [services.SpotifyService] implements it.
type SpotifyAPI interface {
	UserProfile(ctx context.Context, token string) (*services.SpotifyUser, error)
	TopArtists(ctx context.Context, token string, opts services.TopOptions) (*services.SpotifyTopArtists, error)
	TopTracks(ctx context.Context, token string, opts services.TopOptions) (*services.SpotifyTopTracks, error)
	Artist(ctx context.Context, token, artistID string) (*services.SpotifyArtist, error)
	Track(ctx context.Context, token, trackID string) (*services.SpotifyTrack, error)
}

var _ SpotifyAPI = (*services.SpotifyService)(nil)

// ProxyHandler serves the /api routes by forwarding the caller's bearer token to Spotify.
type ProxyHandler struct {
	spotify SpotifyAPI
	logger  *log.Logger
}

// NewProxyHandler creates a [ProxyHandler].
func NewProxyHandler(spotify SpotifyAPI, logger *log.Logger) *ProxyHandler {
	return &ProxyHandler{spotify: spotify, logger: logger}
}

// NewProxyRouter assembles the backend: the OAuth routes, the health check and the bearer-protected /api routes.
func NewProxyRouter(proxy *ProxyHandler, login *LoginHandler, logger *log.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(RequestLogger(logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/login", login.Login)
	r.Get("/callback", login.Callback)

	r.Route("/api", func(r chi.Router) {
		r.Use(BearerAuth)

		r.Get("/profile", proxy.Profile)
		r.Get("/user", proxy.Profile)
		r.Get("/top-artists", proxy.TopArtists)
		r.Get("/top-tracks", proxy.TopTracks)
		r.Get("/artist/{id}", proxy.Artist)
		r.Get("/song/{id}", proxy.Track)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

func (h *ProxyHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.spotify.UserProfile(r.Context(), BearerToken(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, user)
}

func (h *ProxyHandler) TopArtists(w http.ResponseWriter, r *http.Request) {
	page, err := h.spotify.TopArtists(r.Context(), BearerToken(r.Context()), topOptions(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, page)
}

func (h *ProxyHandler) TopTracks(w http.ResponseWriter, r *http.Request) {
	page, err := h.spotify.TopTracks(r.Context(), BearerToken(r.Context()), topOptions(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, page)
}

func (h *ProxyHandler) Artist(w http.ResponseWriter, r *http.Request) {
	artist, err := h.spotify.Artist(r.Context(), BearerToken(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, artist)
}

func (h *ProxyHandler) Track(w http.ResponseWriter, r *http.Request) {
	track, err := h.spotify.Track(r.Context(), BearerToken(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, track)
}

// topOptions reads time_range and limit, falling back to the upstream defaults.
func topOptions(r *http.Request) services.TopOptions {
	opts := services.DefaultTopOptions()
	q := r.URL.Query()
	if tr := q.Get("time_range"); tr != "" {
		opts.TimeRange = tr
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil {
		opts.Limit = l
	}
	return opts.Normalize()
}

// fail maps an upstream error to a response. Upstream statuses and messages pass through unchanged.
func (h *ProxyHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var se *services.StatusError
	switch {
	case errors.As(err, &se):
		WriteError(w, se.StatusCode, se.Message)
	case errors.Is(err, shared.ErrMissingArgument):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrNotAuthenticated):
		WriteError(w, http.StatusUnauthorized, "missing bearer token")
	default:
		h.logger.Error("upstream request failed", "id", RequestID(r.Context()), "path", r.URL.Path, "error", err)
		WriteError(w, http.StatusBadGateway, err.Error())
	}
}
