// Command storefront is a terminal client for the shop API. It keeps a
// durable session under the user's home directory, recovers it on start the
// same way the web client does, and browses the catalog through the local
// filter engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jcastano/atelier/internal/client"
	"github.com/jcastano/atelier/internal/filter"
	"github.com/jcastano/atelier/internal/models"
	"github.com/jcastano/atelier/internal/session"
)

const resolveTimeout = 10 * time.Second

func main() {
	apiURL := flag.String("api", envOr("ATELIER_API_URL", "http://localhost:8080"), "base URL of the storefront API")
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	api := client.New(*apiURL)
	store, err := openStorage()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open session store: %v\n", err)
		os.Exit(1)
	}

	sync := session.New(session.Config{
		Auth:      api,
		Profiles:  api,
		Storage:   store,
		Scheduler: session.NewTimerScheduler(),
		Logger:    logger,
	})

	ctx := context.Background()

	var cmdErr error
	switch cmd := flag.Arg(0); cmd {
	case "login":
		cmdErr = runLogin(ctx, sync, flag.Args()[1:])
	case "logout":
		sync.SignOut(ctx)
		fmt.Println("signed out")
	case "whoami":
		cmdErr = runWhoami(ctx, sync)
	case "browse":
		cmdErr = runBrowse(ctx, api, flag.Args()[1:])
	case "reset-password":
		cmdErr = runResetPassword(ctx, sync, flag.Args()[1:])
	default:
		usage()
		os.Exit(2)
	}

	if cmdErr != nil {
		fmt.Fprintf(os.Stderr, "%v\n", cmdErr)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: storefront [-api URL] <command>

commands:
  login <email> <password>   sign in and persist the session
  logout                     revoke and clear the stored session
  whoami                     show the current session and profile
  browse [flags]             list products through the filter engine
  reset-password <email>     request a password reset email

browse flags:
  -category string   restrict to one category
  -sizes string      comma-separated size filter
  -colors string     comma-separated hex color filter
  -min float         minimum price
  -max float         maximum price`)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func openStorage() (session.Storage, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return session.NewMemoryStorage(), nil
	}
	dir := filepath.Join(home, ".atelier")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return session.NewFileStorage(filepath.Join(dir, "session.json"))
}

func runLogin(ctx context.Context, sync *session.Synchronizer, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: storefront login <email> <password>")
	}

	// Mount first: an unmounted synchronizer drops the sign-in result
	// instead of publishing and persisting it.
	sync.Start(ctx)
	defer sync.Stop()
	if err := awaitInitialCheck(sync); err != nil {
		return err
	}

	sess, err := sync.SignInWithEmail(ctx, args[0], args[1])
	if err != nil {
		return fmt.Errorf("sign-in failed: %w", err)
	}

	fmt.Printf("signed in as %s (%s)\n", sess.User.Name, sess.User.Email)
	return nil
}

// awaitInitialCheck blocks until the mount-time session check settles, so a
// follow-up sign-in cannot race the recovery goroutine.
func awaitInitialCheck(sync *session.Synchronizer) error {
	deadline := time.Now().Add(resolveTimeout)
	for time.Now().Before(deadline) {
		switch sync.View().State {
		case session.StateAnonymous, session.StateAuthenticated:
			return nil
		}
		time.Sleep(20 * time.Millisecond)
	}
	return fmt.Errorf("session check did not resolve")
}

// runWhoami recovers the stored session and waits for the synchronizer to
// resolve, preferring the hydrated profile but settling for the optimistic
// one if hydration is slow.
func runWhoami(ctx context.Context, sync *session.Synchronizer) error {
	resolved := make(chan session.View, 16)
	sync.Subscribe(func(v session.View) {
		resolved <- v
	})
	sync.Start(ctx)
	defer sync.Stop()

	deadline := time.After(resolveTimeout)
	var last session.View
	for {
		select {
		case v := <-resolved:
			last = v
			if v.State == session.StateAnonymous {
				fmt.Println("not signed in")
				return nil
			}
			if v.State == session.StateAuthenticated && v.Profile != nil && v.Profile.Status == models.ProfileHydrated {
				printView(v)
				return nil
			}
		case <-deadline:
			if last.State == session.StateAuthenticated {
				printView(last)
				return nil
			}
			return fmt.Errorf("session check did not resolve")
		}
	}
}

func printView(v session.View) {
	fmt.Printf("signed in as %s (%s)\n", v.User.Name, v.User.Email)
	if v.Profile == nil || v.Profile.Profile == nil {
		return
	}
	p := v.Profile.Profile
	fmt.Printf("profile: %s [%s]\n", p.Name, v.Profile.Status)
	if v.Profile.IsAdmin() {
		fmt.Println("role: admin")
	}
}

func runBrowse(ctx context.Context, api *client.APIClient, args []string) error {
	fs := flag.NewFlagSet("browse", flag.ExitOnError)
	category := fs.String("category", "", "restrict to one category")
	sizes := fs.String("sizes", "", "comma-separated size filter")
	colors := fs.String("colors", "", "comma-separated hex color filter")
	minPrice := fs.Float64("min", -1, "minimum price")
	maxPrice := fs.Float64("max", -1, "maximum price")
	if err := fs.Parse(args); err != nil {
		return err
	}

	products, err := api.ListProducts(ctx, *category, 100, 0)
	if err != nil {
		return fmt.Errorf("failed to list products: %w", err)
	}
	meta, err := api.FetchFilterMetadata(ctx, *category)
	if err != nil {
		return fmt.Errorf("failed to load filter metadata: %w", err)
	}

	engine := filter.NewEngine()
	engine.SetPriceRange(meta.PriceRange)
	if *minPrice >= 0 || *maxPrice >= 0 {
		sub := meta.PriceRange
		if *minPrice >= 0 {
			sub.Lo = *minPrice
		}
		if *maxPrice >= 0 {
			sub.Hi = *maxPrice
		}
		engine.SetPriceFilter(sub)
	}
	for _, s := range splitList(*sizes) {
		engine.ToggleSize(s)
	}
	for _, c := range splitList(*colors) {
		engine.ToggleColor(c)
	}

	visible := engine.Visible(products)
	fmt.Printf("%d of %d products\n", len(visible), len(products))
	for _, p := range visible {
		fmt.Printf("  %-38s %8.2f %s  %s  sizes=%s\n",
			p.ID, p.Amount, p.Currency, p.Category, strings.Join(p.AvailableSizes, ","))
	}
	return nil
}

func runResetPassword(ctx context.Context, sync *session.Synchronizer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: storefront reset-password <email>")
	}
	if err := sync.ResetPassword(ctx, args[0]); err != nil {
		return fmt.Errorf("reset request failed: %w", err)
	}
	fmt.Println("if the email is registered, a reset link has been sent")
	return nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
