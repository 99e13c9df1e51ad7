package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sakif/country-explorer/internal/apperror"
	"github.com/sakif/country-explorer/internal/auth"
	"github.com/sakif/country-explorer/internal/config"
	"github.com/sakif/country-explorer/internal/directory"
	"github.com/sakif/country-explorer/internal/favorites"
	"github.com/sakif/country-explorer/internal/repository"
	sqliteRepo "github.com/sakif/country-explorer/internal/repository/sqlite"
	"github.com/sakif/country-explorer/internal/restcountries"
	"github.com/sakif/country-explorer/internal/service"
	"github.com/sakif/country-explorer/internal/session"
)

// secretKey holds the CLI's own signing secret when JWT_SECRET is unset,
// so tokens stay valid across invocations.
const secretKey = "jwt_secret"

// app is the dependency graph shared by the subcommands of one invocation.
type app struct {
	db        *sqliteRepo.DB
	remote    *restcountries.Client
	directory *directory.Cache
	favorites *favorites.Store
	session   *session.Manager
}

func (a *app) close() {
	if a.remote != nil {
		a.remote.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

// Execute runs the CLI with os.Args.
func Execute() error {
	root, a := newRootCmd()
	defer a.close()
	return root.Execute()
}

// newRootCmd returns the command tree and the app it fills in before any
// subcommand runs. The caller closes the app.
func newRootCmd() (*cobra.Command, *app) {
	var (
		home    string
		baseURL string
		verbose bool
		a       = &app{}
	)

	root := &cobra.Command{
		Use:          "atlas",
		Short:        "Browse countries and keep favorites from the terminal",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".atlas")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}

			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			built, err := build(cmd.Context(), home, baseURL, logger)
			if err != nil {
				return err
			}
			*a = *built
			return nil
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "data dir (default ~/.atlas)")
	root.PersistentFlags().StringVar(&baseURL, "base-url", "", "countries API base URL (default $RESTCOUNTRIES_BASE_URL)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		countriesCmd(a),
		showCmd(a),
		loginCmd(a),
		registerCmd(a),
		logoutCmd(a),
		whoamiCmd(a),
		favoritesCmd(a),
	)
	return root, a
}

// build wires the core against the sqlite file in home and restores the
// persisted session.
func build(ctx context.Context, home, baseURL string, logger *slog.Logger) (*app, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if baseURL != "" {
		cfg.RestCountriesBaseURL = baseURL
	}

	db, err := sqliteRepo.New(filepath.Join(home, "atlas.db"))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", home, err)
	}
	a := &app{db: db}

	secret := cfg.JWTSecret
	if cfg.JWTSecretGenerated {
		if secret, err = localSecret(ctx, db, cfg.JWTSecret); err != nil {
			a.close()
			return nil, err
		}
	}
	tokens, err := auth.NewTokenService(secret)
	if err != nil {
		a.close()
		return nil, err
	}

	authService := service.NewAuthService(db.Accounts(), auth.NewPasswordService(), tokens, logger, cfg.AuthDelay)
	if err := authService.SeedDemoAccount(ctx); err != nil {
		a.close()
		return nil, err
	}

	a.remote = restcountries.NewClient(restcountries.Config{
		BaseURL:       cfg.RestCountriesBaseURL,
		RatePerMinute: cfg.RestCountriesRatePerMinute,
	}, logger)
	a.directory = directory.NewCache(a.remote, logger)
	a.favorites = favorites.NewStore(db, logger, nil)
	a.session = session.NewManager(
		session.NewKVTokenStore(db),
		tokens,
		authService,
		logger,
		session.WithScope(a.favorites),
		session.WithAuthTimeout(cfg.AuthTimeout),
	)

	if err := a.session.Initialize(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// localSecret returns the secret stored in kv, storing candidate first if
// there is none yet.
func localSecret(ctx context.Context, kv repository.KVStore, candidate string) (string, error) {
	secret, err := kv.Get(ctx, secretKey)
	if err == nil {
		return secret, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return "", fmt.Errorf("reading signing secret: %w", err)
	}
	if err := kv.Set(ctx, secretKey, candidate); err != nil {
		return "", fmt.Errorf("storing signing secret: %w", err)
	}
	return candidate, nil
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
