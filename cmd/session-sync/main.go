// Command session-sync stores and retrieves encrypted session cookies
// through a private GitHub gist, so a signed-in session on one machine
// can be picked up on another.
//
// Usage:
//
//	session-sync store   read a cookie JSON object from stdin and push it
//	session-sync fetch   pull the stored cookies and print them to stdout
//	session-sync exists  exit 0 when remote session data is reachable
//	session-sync delete  remove the remote gist and all local references
//	session-sync status  show what this device currently tracks
//	session-sync reset   wipe all local state including the encryption key
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alexjbarnes/session-sync/internal/config"
	"github.com/alexjbarnes/session-sync/internal/gist"
	"github.com/alexjbarnes/session-sync/internal/logging"
	"github.com/alexjbarnes/session-sync/internal/oauth"
	"github.com/alexjbarnes/session-sync/internal/session"
	"github.com/alexjbarnes/session-sync/internal/syncer"
)

var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() error {
	fmt.Fprintln(os.Stderr, "usage: session-sync <store|fetch|exists|delete|status|reset>")

	return fmt.Errorf("no command given")
}

func run() error {
	if len(os.Args) < 2 {
		return usage()
	}
	command := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.NewLogger(cfg.Environment)
	logger.Debug("session-sync starting", slog.String("version", Version), slog.String("command", command))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pointers, err := gist.NewPointerStore()
	if err != nil {
		return err
	}

	s, err := syncer.New(
		gist.NewClient(nil),
		oauth.NewFlow(cfg, logger),
		session.NewKeyringStore(),
		pointers,
		logger,
	)
	if err != nil {
		return err
	}

	switch command {
	case "store":
		return runStore(ctx, s)
	case "fetch":
		return runFetch(ctx, s)
	case "exists":
		return runExists(ctx, s)
	case "delete":
		return runDelete(ctx, s)
	case "status":
		return runStatus(ctx, s)
	case "reset":
		return runReset(s)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", command)

		return usage()
	}
}

// runStore reads a flat JSON object of platform -> cookie string from
// stdin and pushes it.
func runStore(ctx context.Context, s *syncer.Syncer) error {
	input, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}

	var cookies map[string]string
	if err := json.Unmarshal(input, &cookies); err != nil {
		return fmt.Errorf("stdin must be a JSON object of platform to cookie string: %w", err)
	}

	return s.StoreCookies(ctx, cookies)
}

// runFetch prints the cookie JSON to stdout. Logs go to stderr, so the
// output is safe to pipe.
func runFetch(ctx context.Context, s *syncer.Syncer) error {
	cookies, err := s.GetCookies(ctx)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cookies: %w", err)
	}

	fmt.Println(string(out))

	return nil
}

func runExists(ctx context.Context, s *syncer.Syncer) error {
	if !s.HasCookies(ctx) {
		fmt.Println("no session data")
		os.Exit(1)
	}

	fmt.Println("session data available")

	return nil
}

func runDelete(ctx context.Context, s *syncer.Syncer) error {
	if err := s.DeleteCookies(ctx); err != nil {
		return err
	}

	fmt.Println("session data deleted")

	return nil
}

func runStatus(ctx context.Context, s *syncer.Syncer) error {
	status, err := s.Status(ctx)
	if err != nil {
		return err
	}

	if !status.Configured {
		fmt.Println("not configured: no session data tracked on this device")

		return nil
	}

	fmt.Printf("gist:      %s\n", status.GistID)
	fmt.Printf("user:      %s\n", status.Username)
	fmt.Printf("last sync: %s\n", status.LastSync)

	if !status.Recent {
		fmt.Println("warning: last sync is over 30 days old")
	}

	if status.HasSession {
		fmt.Printf("platforms: %s\n", strings.Join(status.Platforms, ", "))
		fmt.Printf("expires:   in %s\n", status.ExpiresIn.Round(time.Hour))

		if status.NeedsRefresh {
			fmt.Println("note: session expires within 7 days, store again to extend it")
		}
	}

	return nil
}

func runReset(s *syncer.Syncer) error {
	// The master key goes with it; remote blobs become unreadable.
	fmt.Fprint(os.Stderr, "This wipes all local sync state including the encryption key. Type 'yes' to continue: ")

	var answer string
	if _, err := fmt.Fscanln(os.Stdin, &answer); err != nil || answer != "yes" {
		return fmt.Errorf("reset aborted")
	}

	if err := s.Reset(); err != nil {
		return err
	}

	fmt.Println("local state reset")

	return nil
}
