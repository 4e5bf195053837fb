package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/browser"
	"golang.org/x/oauth2"

	"github.com/alexjbarnes/session-sync/internal/config"
)

// flowTimeout bounds the whole interactive flow: browser launch, user
// consent, and the callback round trip.
const flowTimeout = 5 * time.Minute

// exchangeTimeout bounds the code-for-token POST on its own, since the
// oauth2 transport carries no deadline of its own.
const exchangeTimeout = 30 * time.Second

// Flow runs the GitHub authorization-code flow end to end: bind the
// callback listener, open the browser, wait for the redirect, verify
// CSRF state, and exchange the code for an access token.
type Flow struct {
	cfg     *config.Config
	logger  *slog.Logger
	openURL func(string) error
}

// NewFlow creates a flow using the system browser.
func NewFlow(cfg *config.Config, logger *slog.Logger) *Flow {
	return &Flow{cfg: cfg, logger: logger, openURL: browser.OpenURL}
}

// Authenticate runs the flow and returns the access token. The state
// parameter is generated fresh per attempt and checked on return:
// format first, then a constant-time value comparison. The
// authorization code is exchanged exactly once.
func (f *Flow) Authenticate(ctx context.Context) (string, error) {
	server, err := NewCallbackServer(f.logger)
	if err != nil {
		return "", fmt.Errorf("starting callback server: %w", err)
	}

	go server.Serve()
	defer func() {
		if err := server.Shutdown(context.Background()); err != nil {
			f.logger.Debug("callback server shutdown", "error", err)
		}
	}()

	redirectURL, err := redirectWithPort(f.cfg.CallbackURL, server.Port())
	if err != nil {
		return "", err
	}

	state, err := NewState()
	if err != nil {
		return "", err
	}

	oc := &oauth2.Config{
		ClientID:     f.cfg.ClientID,
		ClientSecret: f.cfg.ClientSecret,
		RedirectURL:  redirectURL,
		Scopes:       f.cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  f.cfg.AuthorizeURL,
			TokenURL: f.cfg.TokenURL,
		},
	}

	authURL := oc.AuthCodeURL(state)

	f.logger.Info("opening browser for github authorization", "port", server.Port())

	if err := f.openURL(authURL); err != nil {
		// Headless machines still get the URL; the flow keeps waiting.
		f.logger.Warn("could not open browser, authorize manually", "url", authURL, "error", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, flowTimeout)
	defer cancel()

	result, err := server.Wait(waitCtx)
	if err != nil {
		return "", err
	}

	if result.Error != "" {
		if result.ErrorDescription != "" {
			return "", fmt.Errorf("github authorization failed: %s (%s)", result.Error, result.ErrorDescription)
		}

		return "", fmt.Errorf("github authorization failed: %s", result.Error)
	}

	if result.Code == "" {
		return "", fmt.Errorf("callback carried no authorization code")
	}

	if err := ValidateStateFormat(result.State); err != nil {
		return "", fmt.Errorf("rejecting callback: %w", err)
	}

	if !StatesEqual(state, result.State) {
		return "", fmt.Errorf("state mismatch, possible CSRF attempt")
	}

	exchangeCtx, cancelExchange := context.WithTimeout(ctx, exchangeTimeout)
	defer cancelExchange()

	token, err := oc.Exchange(exchangeCtx, result.Code)
	if err != nil {
		return "", fmt.Errorf("exchanging authorization code: %w", err)
	}

	if token.AccessToken == "" {
		return "", fmt.Errorf("token exchange returned an empty access token")
	}

	f.logger.Info("github authorization complete")

	return token.AccessToken, nil
}

// redirectWithPort substitutes the bound callback port into the
// configured redirect URI. Non-localhost callbacks (HTTPS tunnels) pass
// through untouched since the local listener is not in their path.
func redirectWithPort(callback string, port int) (string, error) {
	u, err := url.Parse(callback)
	if err != nil {
		return "", fmt.Errorf("parsing callback url: %w", err)
	}

	if u.Hostname() != "localhost" && u.Hostname() != "127.0.0.1" {
		return callback, nil
	}

	u.Host = u.Hostname() + ":" + strconv.Itoa(port)

	return u.String(), nil
}
