package gist

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const (
	// configDirPerm is the permission mode for the config directory.
	configDirPerm = fs.FileMode(0o700)

	// configFilePerm is the permission mode for the pointer file. It
	// holds no secrets (only a token hash) but there is no reason to
	// share it either.
	configFilePerm = fs.FileMode(0o600)

	// pointerVersion is the current pointer record format version.
	pointerVersion = 1

	// recentWindow is how recently a pointer must have synced to count
	// as recent.
	recentWindow = 30 * 24 * time.Hour
)

// Pointer is the local record tracking which remote gist holds the
// encrypted session blob. It is the single source of truth for "where
// is my remote data"; losing it just forces a fresh store.
type Pointer struct {
	GistID         string    `json:"gist_id"`
	GitHubUsername string    `json:"github_username"`
	TokenHash      string    `json:"token_hash"`
	LastSync       time.Time `json:"last_sync"`
	CreatedAt      time.Time `json:"created_at"`
	Version        int       `json:"version"`
}

// NewPointer builds a pointer for a freshly created gist.
func NewPointer(gistID, username, tokenHash string) *Pointer {
	now := time.Now().UTC()

	return &Pointer{
		GistID:         gistID,
		GitHubUsername: username,
		TokenHash:      tokenHash,
		LastSync:       now,
		CreatedAt:      now,
		Version:        pointerVersion,
	}
}

// TouchSync updates the last-sync timestamp.
func (p *Pointer) TouchSync() {
	p.LastSync = time.Now().UTC()
}

// Validate checks the record field by field, returning a KindConfig
// error naming the first offending field.
func (p *Pointer) Validate() error {
	if p.GistID == "" {
		return ConfigErr("gist_id", "cannot be empty")
	}

	if p.GitHubUsername == "" {
		return ConfigErr("github_username", "cannot be empty")
	}

	if len(p.TokenHash) != 64 {
		return ConfigErr("token_hash", "must be 64 characters (SHA-256 hex)")
	}

	if _, err := hex.DecodeString(p.TokenHash); err != nil {
		return ConfigErr("token_hash", "must be hex")
	}

	if p.CreatedAt.IsZero() {
		return ConfigErr("created_at", "missing timestamp")
	}

	if p.LastSync.IsZero() {
		return ConfigErr("last_sync", "missing timestamp")
	}

	return nil
}

// IsRecent reports whether the pointer synced within the last 30 days.
func (p *Pointer) IsRecent() bool {
	return time.Since(p.LastSync) < recentWindow
}

// PointerStore reads and writes the pointer file. The file lives in the
// per-user config directory; a .backup sibling is kept across
// destructive operations.
type PointerStore struct {
	path string
}

// NewPointerStore returns a store rooted at the default location:
// <user config dir>/session-sync/github-gist-config.json.
func NewPointerStore() (*PointerStore, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, ConfigErr("config_directory", fmt.Sprintf("cannot determine user config dir: %v", err))
	}

	return NewPointerStoreAt(filepath.Join(dir, "session-sync", "github-gist-config.json")), nil
}

// NewPointerStoreAt returns a store using the given file path. Useful
// for tests that need an isolated location.
func NewPointerStoreAt(path string) *PointerStore {
	return &PointerStore{path: path}
}

// Path returns the pointer file location.
func (s *PointerStore) Path() string { return s.path }

// Load reads the pointer record. A missing or empty file is not an
// error: it returns (nil, nil), meaning "no remote data tracked yet".
func (s *PointerStore) Load() (*Pointer, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, ConfigErr("file_read", fmt.Sprintf("reading pointer file: %v", err))
	}

	if len(data) == 0 {
		return nil, nil
	}

	var p Pointer
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, ConfigErr("json_parse", fmt.Sprintf("invalid pointer format: %v", err))
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &p, nil
}

// Save validates and writes the full record, creating the containing
// directory if needed. The file is always written whole, never appended.
func (s *PointerStore) Save(p *Pointer) error {
	if err := p.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), configDirPerm); err != nil {
		return ConfigErr("directory_creation", fmt.Sprintf("creating config directory: %v", err))
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return ConfigErr("json_serialization", fmt.Sprintf("serializing pointer: %v", err))
	}

	if err := os.WriteFile(s.path, data, configFilePerm); err != nil {
		return ConfigErr("file_write", fmt.Sprintf("writing pointer file: %v", err))
	}

	return nil
}

// Exists reports whether a pointer file is present.
func (s *PointerStore) Exists() bool {
	_, err := os.Stat(s.path)

	return err == nil
}

// Remove deletes the pointer file. Removing a file that never existed
// is not an error.
func (s *PointerStore) Remove() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return ConfigErr("file_removal", fmt.Sprintf("removing pointer file: %v", err))
	}

	return nil
}

// backupPath returns the sibling backup location.
func (s *PointerStore) backupPath() string {
	return s.path + ".backup"
}

// Backup copies the pointer file to its .backup sibling. Returns the
// backup path, or "" when there was nothing to back up.
func (s *PointerStore) Backup() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}

		return "", ConfigErr("backup_creation", fmt.Sprintf("reading pointer file: %v", err))
	}

	if err := os.WriteFile(s.backupPath(), data, configFilePerm); err != nil {
		return "", ConfigErr("backup_creation", fmt.Sprintf("writing backup: %v", err))
	}

	return s.backupPath(), nil
}

// RestoreFromBackup copies the .backup sibling back over the pointer
// file. Missing backup is an error: there is nothing to restore.
func (s *PointerStore) RestoreFromBackup() error {
	data, err := os.ReadFile(s.backupPath())
	if err != nil {
		if os.IsNotExist(err) {
			return ConfigErr("backup_restore", "no backup file found")
		}

		return ConfigErr("backup_restore", fmt.Sprintf("reading backup: %v", err))
	}

	if err := os.WriteFile(s.path, data, configFilePerm); err != nil {
		return ConfigErr("backup_restore", fmt.Sprintf("restoring pointer file: %v", err))
	}

	return nil
}

// ValidateFile reports whether the pointer file, if present, parses and
// validates. Absence is fine (returns false, nil error semantics folded
// into the bool).
func (s *PointerStore) ValidateFile() bool {
	p, err := s.Load()

	return err == nil && p != nil
}
