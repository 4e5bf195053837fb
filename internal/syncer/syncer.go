// Package syncer orchestrates cross-device session sync: it owns token
// acquisition, wraps cookie payloads in session metadata, seals them,
// and moves the resulting blobs between the local machine and the
// remote storage gist.
package syncer

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexjbarnes/session-sync/internal/gist"
	"github.com/alexjbarnes/session-sync/internal/session"
)

// GistAPI is the remote storage surface the syncer depends on,
// implemented by gist.Client.
type GistAPI interface {
	CreateGist(ctx context.Context, token, content string) (string, error)
	UpdateGist(ctx context.Context, token, gistID, content string) error
	FetchGist(ctx context.Context, token, gistID string) (string, error)
	DeleteGist(ctx context.Context, token, gistID string) error
	CurrentUser(ctx context.Context, token string) (string, error)
}

// Authenticator produces a fresh access token through user interaction,
// implemented by oauth.Flow.
type Authenticator interface {
	Authenticate(ctx context.Context) (string, error)
}

// Syncer is the top-level orchestrator. All of its operations are
// synchronous; retries and re-authentication happen inside.
type Syncer struct {
	api      GistAPI
	auth     Authenticator
	secrets  session.SecretStore
	pointers *gist.PointerStore
	enc      *session.Encryptor
	retry    gist.RetryConfig
	logger   *slog.Logger
}

// New builds a Syncer. The encryptor is constructed eagerly so a broken
// secret store fails here rather than mid-sync.
func New(api GistAPI, auth Authenticator, secrets session.SecretStore, pointers *gist.PointerStore, logger *slog.Logger) (*Syncer, error) {
	enc, err := session.NewEncryptor(secrets)
	if err != nil {
		return nil, gist.EncryptionErr("initializing encryptor", err)
	}

	return &Syncer{
		api:      api,
		auth:     auth,
		secrets:  secrets,
		pointers: pointers,
		enc:      enc,
		retry:    gist.DefaultRetryConfig(),
		logger:   logger,
	}, nil
}

// TokenHash returns the hex SHA-256 of an access token. The pointer
// file records only this hash; the token itself stays in the secret
// store.
func TokenHash(token string) string {
	sum := sha256.Sum256([]byte(token))

	return hex.EncodeToString(sum[:])
}

// ensureToken returns a usable access token and the login it belongs
// to. A stored token is probed first; only a rejection (not transport
// trouble) triggers the interactive flow.
func (s *Syncer) ensureToken(ctx context.Context) (string, string, error) {
	stored, err := s.secrets.Get(session.OAuthTokenEntry)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return "", "", gist.AuthRequired("reading stored token", err)
	}

	if err == nil && stored != "" {
		login, probeErr := s.api.CurrentUser(ctx, stored)
		if probeErr == nil {
			return stored, login, nil
		}

		var ge *gist.Error
		if !errors.As(probeErr, &ge) || ge.Kind != gist.KindAuthenticationRequired {
			return "", "", probeErr
		}

		s.logger.Info("stored github token rejected, re-authenticating")
	}

	token, err := s.auth.Authenticate(ctx)
	if err != nil {
		return "", "", gist.AuthRequired("github authorization failed", err)
	}

	login, err := s.api.CurrentUser(ctx, token)
	if err != nil {
		return "", "", err
	}

	if err := s.secrets.Set(session.OAuthTokenEntry, token); err != nil {
		// Sync still works this run; the next one re-authenticates.
		s.logger.Warn("could not persist oauth token", "error", err)
	}

	return token, login, nil
}

// StoreCookies seals the cookie map and pushes it to the storage gist,
// creating the gist on first use. When a previous session can still be
// fetched and opened, its identity is kept and the expiry window
// slides; otherwise a fresh session is minted.
func (s *Syncer) StoreCookies(ctx context.Context, cookies map[string]string) error {
	if len(cookies) == 0 {
		return gist.InvalidDataErr("no cookies to store", nil)
	}

	token, username, err := s.ensureToken(ctx)
	if err != nil {
		return err
	}

	pointer, err := s.pointers.Load()
	if err != nil {
		// A corrupt pointer only costs us the old gist; store fresh.
		s.logger.Warn("pointer file unreadable, starting fresh", "error", err)
		pointer = nil
	}

	data := s.buildSessionData(ctx, token, pointer, cookies)

	content, err := s.sealPayload(data)
	if err != nil {
		return err
	}

	if pointer != nil {
		err = s.updateExisting(ctx, token, username, pointer, content)
		if err == nil {
			return nil
		}

		var ge *gist.Error
		if !errors.As(err, &ge) || ge.Kind != gist.KindGistNotFound {
			return err
		}

		s.logger.Warn("tracked gist vanished remotely, creating a new one", "gist_id", pointer.GistID)
	}

	return s.createNew(ctx, token, username, content)
}

// buildSessionData reuses the previous session identity when the
// remote payload is still fetchable and intact, otherwise mints a new
// session.
func (s *Syncer) buildSessionData(ctx context.Context, token string, pointer *gist.Pointer, cookies map[string]string) *session.Data {
	if pointer != nil {
		existing, err := s.fetchAndOpen(ctx, token, pointer.GistID)

		switch {
		case err != nil:
			s.logger.Debug("previous session not fetchable", "error", err)
		case existing.Metadata.Validate() != nil:
			// Updating slides the expiry window but not the age
			// ceiling, so a session past its limits starts over.
			s.logger.Debug("previous session past its limits, minting a new one")
		default:
			existing.Update(cookies)

			return existing
		}
	}

	return session.New(cookies)
}

// sealPayload serializes, encrypts, and base64-encodes session data
// into gist file content.
func (s *Syncer) sealPayload(data *session.Data) (string, error) {
	plaintext, err := json.Marshal(data)
	if err != nil {
		return "", gist.SerializationErr("encoding session data", err)
	}

	sealed, err := s.enc.Seal(plaintext)
	if err != nil {
		return "", gist.EncryptionErr("sealing session data", err)
	}

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// fetchAndOpen pulls the remote payload and decrypts it into session
// data. No retry here: callers decide whether the fetch is worth it.
func (s *Syncer) fetchAndOpen(ctx context.Context, token, gistID string) (*session.Data, error) {
	content, err := s.api.FetchGist(ctx, token, gistID)
	if err != nil {
		return nil, err
	}

	blob, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, gist.InvalidDataErr("remote payload is not valid base64", err)
	}

	plaintext, err := s.enc.Open(blob)
	if err != nil {
		return nil, gist.EncryptionErr("opening session data", err)
	}

	var data session.Data
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return nil, gist.SerializationErr("decoding session data", err)
	}

	return &data, nil
}

func (s *Syncer) updateExisting(ctx context.Context, token, username string, pointer *gist.Pointer, content string) error {
	_, err := gist.WithRetry(ctx, s.retry, gist.RetryableError,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.api.UpdateGist(ctx, token, pointer.GistID, content)
		})
	if err != nil {
		return err
	}

	if _, err := s.pointers.Backup(); err != nil {
		s.logger.Warn("pointer backup failed", "error", err)
	}

	pointer.GitHubUsername = username
	pointer.TokenHash = TokenHash(token)
	pointer.TouchSync()

	if err := s.pointers.Save(pointer); err != nil {
		return err
	}

	s.logger.Info("session stored", "gist_id", pointer.GistID, "user", username)

	return nil
}

func (s *Syncer) createNew(ctx context.Context, token, username, content string) error {
	gistID, err := gist.WithRetry(ctx, s.retry, gist.RetryableError,
		func(ctx context.Context) (string, error) {
			return s.api.CreateGist(ctx, token, content)
		})
	if err != nil {
		return err
	}

	if _, err := s.pointers.Backup(); err != nil {
		s.logger.Warn("pointer backup failed", "error", err)
	}

	if err := s.pointers.Save(gist.NewPointer(gistID, username, TokenHash(token))); err != nil {
		return err
	}

	s.logger.Info("session stored in new gist", "gist_id", gistID, "user", username)

	return nil
}

// GetCookies pulls the remote payload, opens it, validates the session,
// and returns the cookie map. A payload that fails decryption or
// validation is treated as unrecoverable: the local pointer is removed
// so the next store starts clean.
func (s *Syncer) GetCookies(ctx context.Context) (map[string]string, error) {
	pointer, err := s.pointers.Load()
	if err != nil {
		return nil, err
	}

	if pointer == nil {
		return nil, gist.NotFoundErr("no session data tracked on this device")
	}

	token, _, err := s.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	content, err := gist.WithRetry(ctx, s.retry, gist.RetryableError,
		func(ctx context.Context) (string, error) {
			return s.api.FetchGist(ctx, token, pointer.GistID)
		})
	if err != nil {
		return nil, err
	}

	data, err := s.openAndValidate(content)
	if err != nil {
		s.discardPointer(err)

		return nil, err
	}

	// Heal a stale token hash (re-auth happened since the last store)
	// while touching the sync time.
	pointer.TokenHash = TokenHash(token)
	pointer.TouchSync()

	if err := s.pointers.Save(pointer); err != nil {
		s.logger.Warn("could not update pointer after fetch", "error", err)
	}

	s.logger.Info("session fetched", "gist_id", pointer.GistID, "platforms", data.Metadata.Platforms)

	return data.Cookies, nil
}

func (s *Syncer) openAndValidate(content string) (*session.Data, error) {
	blob, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, gist.InvalidDataErr("remote payload is not valid base64", err)
	}

	plaintext, err := s.enc.Open(blob)
	if err != nil {
		return nil, gist.EncryptionErr("opening session data", err)
	}

	var data session.Data
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return nil, gist.SerializationErr("decoding session data", err)
	}

	if err := data.Validate(); err != nil {
		return nil, gist.ValidationErr(err.Error(), err)
	}

	return &data, nil
}

// discardPointer backs up and removes the pointer file after an
// unrecoverable payload, so the stale reference stops shadowing future
// stores.
func (s *Syncer) discardPointer(cause error) {
	s.logger.Warn("discarding session pointer", "cause", cause)

	if _, err := s.pointers.Backup(); err != nil {
		s.logger.Warn("pointer backup failed", "error", err)
	}

	if err := s.pointers.Remove(); err != nil {
		s.logger.Warn("pointer removal failed", "error", err)
	}
}

// HasCookies reports whether usable remote session data exists: the
// payload must fetch, open, and validate. It never errors and never
// starts an interactive flow: no pointer, no stored token, or any
// remote failure all read as false.
func (s *Syncer) HasCookies(ctx context.Context) bool {
	_, data := s.peekRemote(ctx)

	return data != nil
}

// peekRemote fetches and opens the remote session without interaction,
// returning nils on any failure.
func (s *Syncer) peekRemote(ctx context.Context) (*gist.Pointer, *session.Data) {
	pointer, err := s.pointers.Load()
	if err != nil || pointer == nil {
		return nil, nil
	}

	token, err := s.secrets.Get(session.OAuthTokenEntry)
	if err != nil || token == "" {
		return pointer, nil
	}

	content, err := s.api.FetchGist(ctx, token, pointer.GistID)
	if err != nil {
		return pointer, nil
	}

	data, err := s.openAndValidate(content)
	if err != nil {
		return pointer, nil
	}

	return pointer, data
}

// DeleteCookies removes the remote gist, the local pointer, and the
// stored token. A gist already gone remotely is not an error; the
// master encryption key is kept so old backups remain openable.
func (s *Syncer) DeleteCookies(ctx context.Context) error {
	pointer, err := s.pointers.Load()
	if err != nil {
		s.logger.Warn("pointer unreadable during delete, removing local state only", "error", err)
		pointer = nil
	}

	if pointer != nil {
		token, _, err := s.ensureToken(ctx)
		if err != nil {
			return err
		}

		_, err = gist.WithRetry(ctx, s.retry, gist.RetryableError,
			func(ctx context.Context) (struct{}, error) {
				return struct{}{}, s.api.DeleteGist(ctx, token, pointer.GistID)
			})
		if err != nil {
			var ge *gist.Error
			if !errors.As(err, &ge) || ge.Kind != gist.KindGistNotFound {
				return err
			}

			s.logger.Debug("gist already gone remotely", "gist_id", pointer.GistID)
		}
	}

	if _, err := s.pointers.Backup(); err != nil {
		s.logger.Warn("pointer backup failed", "error", err)
	}

	if err := s.pointers.Remove(); err != nil {
		return err
	}

	if err := s.secrets.Delete(session.OAuthTokenEntry); err != nil {
		s.logger.Warn("could not remove stored token", "error", err)
	}

	s.logger.Info("session data deleted")

	return nil
}

// Status describes the current sync state. Local fields come from the
// pointer file; session fields are filled only when the remote payload
// could be fetched non-interactively.
type Status struct {
	Configured bool
	GistID     string
	Username   string
	LastSync   string
	Recent     bool

	HasSession   bool
	Platforms    []string
	ExpiresIn    time.Duration
	NeedsRefresh bool
}

// Status reports what this device currently tracks. Remote trouble only
// leaves the session fields empty; it never fails the status itself.
func (s *Syncer) Status(ctx context.Context) (*Status, error) {
	pointer, err := s.pointers.Load()
	if err != nil {
		return nil, err
	}

	if pointer == nil {
		return &Status{}, nil
	}

	status := &Status{
		Configured: true,
		GistID:     pointer.GistID,
		Username:   pointer.GitHubUsername,
		LastSync:   pointer.LastSync.Format("2006-01-02 15:04:05 MST"),
		Recent:     pointer.IsRecent(),
	}

	if _, data := s.peekRemote(ctx); data != nil {
		status.HasSession = true
		status.Platforms = data.Metadata.Platforms
		status.ExpiresIn = data.Metadata.TimeUntilExpiration()
		status.NeedsRefresh = data.Metadata.NeedsRefresh()
	}

	return status, nil
}

// Reset wipes all local state: pointer, backup, stored token, and the
// master encryption key. Remote data becomes permanently unreadable.
func (s *Syncer) Reset() error {
	if err := s.pointers.Remove(); err != nil {
		return err
	}

	if err := s.secrets.Delete(session.OAuthTokenEntry); err != nil {
		return fmt.Errorf("removing stored token: %w", err)
	}

	if err := s.secrets.Delete(session.MasterKeyEntry); err != nil {
		return fmt.Errorf("removing master key: %w", err)
	}

	s.logger.Info("local sync state reset")

	return nil
}
