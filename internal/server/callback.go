package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/soundcheck/internal/guard"
	"github.com/desertthunder/soundcheck/internal/shared"
)

// Ingester accepts the token delivered to the callback boundary. [session.Manager] implements it.
type Ingester interface {
	IngestCallback(ctx context.Context, token string) error
}

// CallbackResult is the outcome of the callback boundary.
type CallbackResult struct {
	Destination guard.Destination // where navigation continues
	err         error
}

func (c *CallbackResult) Error() error {
	return c.err
}

// CallbackHandler is the client's callback boundary: it receives ?token= from the backend redirect,
// hands it to the session and publishes where navigation continues.
//
// Only the first request is processed.
type CallbackHandler struct {
	session     Ingester
	guard       *guard.Guard
	logger      *log.Logger
	resultChan  chan CallbackResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewCallbackHandler creates a [CallbackHandler].
func NewCallbackHandler(session Ingester, g *guard.Guard, logger *log.Logger) *CallbackHandler {
	if g == nil {
		g = guard.New()
	}
	return &CallbackHandler{
		session:    session,
		guard:      g,
		logger:     logger,
		resultChan: make(chan CallbackResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{guard.Callback.Path()}
}

func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	q := r.URL.Query()
	token := q.Get("token")

	var err error
	if token == "" && q.Get("error") != "" {
		err = fmt.Errorf("%w: %s", shared.ErrAuthFailed, q.Get("error"))
	} else {
		err = h.session.IngestCallback(r.Context(), token)
	}

	dest := h.guard.AfterCallback(err == nil)
	if err != nil {
		h.logger.Warn("callback failed", "error", err, "next", dest)
	} else {
		h.logger.Info("callback accepted", "next", dest)
	}

	status := http.StatusOK
	if err != nil {
		status = http.StatusBadRequest
	}
	if renderErr := renderCallbackPage(w, status, err); renderErr != nil {
		h.logger.Error("failed to render callback page", "error", renderErr)
	}

	h.Send(CallbackResult{Destination: dest, err: err})
}

// Send sends the result through the channel (only once).
func (h *CallbackHandler) Send(result CallbackResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel.
//
// Channel will receive exactly one result and then be closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.resultChan
}

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: {{.Color}}; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <p>{{.Message}}</p>
    </div>
</body>
</html>
`))

type callbackPageData struct {
	Title   string
	Color   template.CSS
	Message string
}

func renderCallbackPage(w http.ResponseWriter, status int, err error) error {
	data := callbackPageData{
		Title:   "✓ Authorization Successful",
		Color:   "#1DB954",
		Message: "You can close this window and return to the terminal.",
	}
	if err != nil {
		data = callbackPageData{
			Title:   "Authorization Failed",
			Color:   "#E22134",
			Message: err.Error(),
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return callbackPage.Execute(w, data)
}
