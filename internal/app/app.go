// Package app wires the Bookshelf client together: configuration,
// credential storage, the API client, the shared query cache, the auth
// session, and the terminal UI.
package app

import (
	"context"
	"fmt"
	"log"

	"github.com/kwalsh/bookshelf/internal/api"
	"github.com/kwalsh/bookshelf/internal/config"
	"github.com/kwalsh/bookshelf/internal/prefs"
	"github.com/kwalsh/bookshelf/internal/query"
	"github.com/kwalsh/bookshelf/internal/session"
	"github.com/kwalsh/bookshelf/internal/shelf"
	"github.com/kwalsh/bookshelf/internal/ui"
)

// Options configure the Bookshelf application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/bookshelf/prefs.toml
	APIURL     string // overrides the configured API URL
}

// Run boots the Bookshelf TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.APIURL != "" {
		cfg.APIURL = opts.APIURL
	}

	userPrefs := prefs.Load(opts.PrefsPath)
	creds := prefs.NewStore(opts.PrefsPath)

	client, err := api.NewClient(cfg.APIURL)
	if err != nil {
		return fmt.Errorf("init api client: %w", err)
	}

	cache := query.New(query.Options{
		StaleTime: cfg.StaleTime,
		CacheTime: cfg.CacheTime,
	})

	// The UI binds the real reload func once the program exists; until
	// then a 401 teardown just clears state.
	var reload func()
	sess := session.New(session.Options{
		API:   client,
		Cache: cache,
		Creds: creds,
		Reload: func() {
			if reload != nil {
				reload()
			}
		},
	})
	client.OnUnauthorized(sess.HandleUnauthorized)
	defer sess.Close()

	// Silent bootstrap from the stored credential before the UI starts;
	// the splash screen covers the wait.
	boot := sess.Bootstrap(ctx)
	go func() {
		if _, err := boot.Wait(); err != nil {
			log.Printf("bootstrap failed: %v", err)
		}
	}()

	resolver := shelf.NewResolver(client, cache)

	return ui.Run(ui.Options{
		Context:   ctx,
		Session:   sess,
		Resolver:  resolver,
		ThemeName: userPrefs.Theme,
		PrefsPath: opts.PrefsPath,
		BindReload: func(fn func()) {
			reload = fn
		},
	})
}
