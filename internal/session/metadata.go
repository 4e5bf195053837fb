package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"sort"
	"strings"
	"time"
)

const (
	// CurrentVersion is the highest session format version this build
	// understands.
	CurrentVersion = 1

	// sessionLifetime is the sliding expiration window: every
	// successful sync pushes expiry this far out.
	sessionLifetime = 30 * 24 * time.Hour

	// maxSessionAge is the hard ceiling from creation, independent of
	// sliding expiration. Old sessions force a full re-authentication
	// no matter how recently they synced.
	maxSessionAge = 90 * 24 * time.Hour

	// refreshThreshold is how close to expiry a session may get before
	// the orchestrator should re-sync proactively.
	refreshThreshold = 7 * 24 * time.Hour

	sessionIDLen = 32
	deviceIDLen  = 16
)

// ValidationError is a session metadata or integrity check failure.
// Code distinguishes the checks so callers can branch without string
// matching.
type ValidationError struct {
	Code   ValidationCode
	Detail string
}

// ValidationCode enumerates the validation failures.
type ValidationCode int

const (
	// Expired means now is past expires_at.
	Expired ValidationCode = iota

	// TooOld means the session passed the 90-day age ceiling.
	TooOld

	// InvalidSessionID is a malformed session identifier.
	InvalidSessionID

	// InvalidDeviceID is a malformed device identifier.
	InvalidDeviceID

	// UnsupportedVersion is a format version newer than this build.
	UnsupportedVersion

	// ContentHashMismatch means the cookie map does not hash to the
	// recorded value: tampering or corruption.
	ContentHashMismatch
)

func (e *ValidationError) Error() string {
	switch e.Code {
	case Expired:
		return "session expired: " + e.Detail
	case TooOld:
		return "session too old: " + e.Detail
	case InvalidSessionID:
		return "invalid session id format: " + e.Detail
	case InvalidDeviceID:
		return "invalid device id format: " + e.Detail
	case UnsupportedVersion:
		return "unsupported session version: " + e.Detail
	case ContentHashMismatch:
		return "content hash mismatch - possible tampering"
	default:
		return "session validation failed: " + e.Detail
	}
}

// Metadata carries the expiration, integrity, and identity checks
// wrapped around a cookie payload.
type Metadata struct {
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Platforms   []string  `json:"platforms"`
	SessionID   string    `json:"session_id"`
	ContentHash string    `json:"content_hash"`
	DeviceID    string    `json:"device_id"`
}

// NewMetadata creates metadata for the given platforms. The content
// hash stays empty until the caller supplies cookie content.
func NewMetadata(platforms []string) *Metadata {
	now := time.Now().UTC()

	return &Metadata{
		Version:   CurrentVersion,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(sessionLifetime),
		Platforms: platforms,
		SessionID: randomAlphanumeric(sessionIDLen),
		DeviceID:  deviceID(),
	}
}

// Update refreshes the metadata for new content, sliding the expiry
// window forward another 30 days.
func (m *Metadata) Update(platforms []string, contentHash string) {
	now := time.Now().UTC()
	m.UpdatedAt = now
	m.ExpiresAt = now.Add(sessionLifetime)
	m.Platforms = platforms
	m.ContentHash = contentHash
}

// Validate runs all metadata checks.
func (m *Metadata) Validate() error {
	now := time.Now().UTC()

	if now.After(m.ExpiresAt) {
		return &ValidationError{
			Code:   Expired,
			Detail: fmt.Sprintf("expired at %s", m.ExpiresAt.Format(time.RFC3339)),
		}
	}

	if now.Sub(m.CreatedAt) > maxSessionAge {
		return &ValidationError{
			Code:   TooOld,
			Detail: fmt.Sprintf("created at %s, maximum age 90 days", m.CreatedAt.Format(time.RFC3339)),
		}
	}

	if len(m.SessionID) != sessionIDLen || !isAlphanumeric(m.SessionID) {
		return &ValidationError{Code: InvalidSessionID, Detail: m.SessionID}
	}

	if len(m.DeviceID) != deviceIDLen || !isAlphanumeric(m.DeviceID) {
		return &ValidationError{Code: InvalidDeviceID, Detail: m.DeviceID}
	}

	if m.Version > CurrentVersion {
		return &ValidationError{
			Code:   UnsupportedVersion,
			Detail: fmt.Sprintf("version %d, supported up to %d", m.Version, CurrentVersion),
		}
	}

	return nil
}

// IsValid reports whether the metadata passes all checks.
func (m *Metadata) IsValid() bool {
	return m.Validate() == nil
}

// NeedsRefresh reports whether fewer than 7 days remain before expiry,
// hinting the orchestrator to re-sync before the session lapses.
func (m *Metadata) NeedsRefresh() bool {
	return time.Now().UTC().Add(refreshThreshold).After(m.ExpiresAt)
}

// TimeUntilExpiration returns how long the session remains valid, or
// zero when already expired.
func (m *Metadata) TimeUntilExpiration() time.Duration {
	remaining := time.Until(m.ExpiresAt)
	if remaining < 0 {
		return 0
	}

	return remaining
}

// ContentHash computes the integrity hash of a cookie map: hex SHA-256
// over the key-sorted k=v concatenation, so the hash is invariant under
// map iteration order.
func ContentHash(cookies map[string]string) string {
	keys := make([]string, 0, len(cookies))
	for k := range cookies {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	var content strings.Builder
	for _, k := range keys {
		content.WriteString(k)
		content.WriteByte('=')
		content.WriteString(cookies[k])
	}

	sum := sha256.Sum256([]byte(content.String()))

	return hex.EncodeToString(sum[:])
}

// Data is the full session object: metadata plus the raw cookie map.
// This is what gets serialized, sealed, and shipped to the gist.
type Data struct {
	Metadata Metadata          `json:"metadata"`
	Cookies  map[string]string `json:"cookies"`
}

// New creates session data for a cookie map, filling platforms and the
// content hash from the map itself.
func New(cookies map[string]string) *Data {
	meta := NewMetadata(platformList(cookies))
	meta.ContentHash = ContentHash(cookies)

	return &Data{Metadata: *meta, Cookies: cookies}
}

// Update replaces the cookie map and refreshes the metadata.
func (d *Data) Update(cookies map[string]string) {
	d.Metadata.Update(platformList(cookies), ContentHash(cookies))
	d.Cookies = cookies
}

// Validate runs the metadata checks plus the content-hash integrity
// check against the live cookie map.
func (d *Data) Validate() error {
	if err := d.Metadata.Validate(); err != nil {
		return err
	}

	if d.Metadata.ContentHash != ContentHash(d.Cookies) {
		return &ValidationError{Code: ContentHashMismatch}
	}

	return nil
}

// IsValid reports whether the session data passes all checks.
func (d *Data) IsValid() bool {
	return d.Validate() == nil
}

func platformList(cookies map[string]string) []string {
	platforms := make([]string, 0, len(cookies))
	for k := range cookies {
		platforms = append(platforms, k)
	}

	sort.Strings(platforms)

	return platforms
}

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// randomAlphanumeric draws n characters from the alphanumeric set using
// the cryptographic RNG. Panics only if the OS entropy source is broken,
// in which case nothing security-relevant should proceed anyway.
func randomAlphanumeric(n int) string {
	out := make([]byte, n)

	for i := range out {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphanumeric))))
		if err != nil {
			panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
		}

		out[i] = alphanumeric[idx.Int64()]
	}

	return string(out)
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}

	return true
}

// deviceID derives a 16-character identifier from the host's stable
// name, falling back to a random id when the hostname is unavailable.
func deviceID() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return randomAlphanumeric(deviceIDLen)
	}

	sum := sha256.Sum256([]byte(hostname))

	return hex.EncodeToString(sum[:])[:deviceIDLen]
}
