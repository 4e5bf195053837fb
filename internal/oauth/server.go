package oauth

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	// callbackPortFirst and callbackPortLast bound the port scan for the
	// local callback listener. GitHub OAuth apps register a fixed
	// localhost callback, but GitHub accepts any port on it, so we take
	// the first free one in the range.
	callbackPortFirst = 8080
	callbackPortLast  = 8089

	// callbackPath must match the path registered on the OAuth app.
	callbackPath = "/auth/github/callback"

	serverReadTimeout  = 10 * time.Second
	serverWriteTimeout = 10 * time.Second
	shutdownTimeout    = 5 * time.Second
)

// successPage is shown in the browser once the callback lands. The
// token exchange happens afterwards in the CLI, so this only tells the
// user to come back to the terminal.
const successPage = `<!DOCTYPE html>
<html>
<head><title>Authentication Complete</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h1>Authentication complete</h1>
<p>You can close this window and return to the terminal.</p>
</body>
</html>`

// CallbackResult is what the authorization server sent back: either an
// authorization code with its state echo, or an error pair.
type CallbackResult struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// CallbackServer is a one-shot local HTTP server that receives the
// OAuth redirect. It binds its listener eagerly so the chosen port is
// known before the browser opens, and delivers exactly one result.
type CallbackServer struct {
	listener net.Listener
	server   *http.Server
	port     int
	results  chan CallbackResult
	logger   *slog.Logger
}

// NewCallbackServer binds a listener on the first free port in the
// callback range and prepares the handler. Serve must be called next.
func NewCallbackServer(logger *slog.Logger) (*CallbackServer, error) {
	listener, port, err := bindCallbackPort()
	if err != nil {
		return nil, err
	}

	s := &CallbackServer{
		listener: listener,
		port:     port,
		results:  make(chan CallbackResult, 1),
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, s.handleCallback)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
	}

	return s, nil
}

// bindCallbackPort scans the callback range and returns the first
// listener it can bind.
func bindCallbackPort() (net.Listener, int, error) {
	for port := callbackPortFirst; port <= callbackPortLast; port++ {
		listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			return listener, port, nil
		}
	}

	return nil, 0, fmt.Errorf("no free callback port in %d-%d", callbackPortFirst, callbackPortLast)
}

// Port returns the bound callback port.
func (s *CallbackServer) Port() int { return s.port }

// RedirectURL returns the full callback URL for the bound port.
func (s *CallbackServer) RedirectURL() string {
	return fmt.Sprintf("http://localhost:%d%s", s.port, callbackPath)
}

// Serve starts handling requests on the bound listener. It returns when
// the server is shut down.
func (s *CallbackServer) Serve() {
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("callback server failed", "error", err)
	}
}

// Wait blocks until the callback arrives or the context expires.
func (s *CallbackServer) Wait(ctx context.Context) (CallbackResult, error) {
	select {
	case result := <-s.results:
		return result, nil
	case <-ctx.Done():
		return CallbackResult{}, fmt.Errorf("waiting for oauth callback: %w", ctx.Err())
	}
}

// Shutdown stops the server, releasing the port.
func (s *CallbackServer) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

		return
	}

	query := r.URL.Query()
	result := CallbackResult{
		Code:             query.Get("code"),
		State:            query.Get("state"),
		Error:            query.Get("error"),
		ErrorDescription: query.Get("error_description"),
	}

	// Only the first callback counts. Stray reloads after the channel
	// is full are answered but ignored.
	select {
	case s.results <- result:
	default:
		s.logger.Debug("duplicate oauth callback ignored")
	}

	if result.Error != "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		// The error parameter is attacker-controllable query input;
		// escape it before it touches the page.
		fmt.Fprintf(w, "<html><body><h1>Authentication failed</h1><p>%s</p></body></html>", html.EscapeString(result.Error))

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, successPage)
}
