// Package commands implements the detetivectl command tree.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"detetive/internal/backend"
	"detetive/internal/cli"
	"detetive/internal/config"
	"detetive/internal/core"
	"detetive/internal/middleware/auth"
	"detetive/internal/services"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	env := &environment{}

	rootCmd := &cobra.Command{
		Use:   "detetivectl",
		Short: "Operate a Detetive Financeiro installation",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			env.load(cmd.ErrOrStderr())
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&env.verbose, "verbose", "v", false, "log backend activity to stderr")

	rootCmd.AddCommand(
		newMigrateCommand(env),
		newSeedCommand(env),
		newTokenCommand(env),
		newSummaryCommand(env),
		newFlagsCommand(env),
	)
	return rootCmd
}

// environment is the configuration shared by every subcommand.
type environment struct {
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
	clock   func() time.Time
}

func (e *environment) load(stderr io.Writer) {
	cli.LoadEnvFile()
	e.cfg = config.Load()
	level := slog.LevelWarn
	if e.verbose {
		level = slog.LevelDebug
	}
	e.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
}

// app is an opened backend with the services on top of it.
type app struct {
	svc     *services.Services
	stores  *backend.Stores
	tokens  *auth.Tokens
	cleanup backend.CleanupFunc
}

// open resolves the configured backends. Without JWT_SECRET a throwaway
// signing key is used unless requireSecret is set.
func (e *environment) open(ctx context.Context, requireSecret bool) (*app, error) {
	secret := e.cfg.JWTSecret
	if secret == "" {
		if requireSecret {
			return nil, errors.New("JWT_SECRET is required")
		}
		secret = uuid.NewString()
	}
	tokens, err := auth.NewTokens(secret, e.cfg.JWTTTL)
	if err != nil {
		return nil, err
	}

	bcfg, err := backend.FromAppConfig(e.cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(e.logger).Resolve(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("open backends: %w", err)
	}

	svc := services.New(services.Deps{
		Stores:     res.Stores,
		Tokens:     tokens,
		Thresholds: cli.Thresholds(e.cfg),
		Logger:     e.logger,
	})
	return &app{svc: svc, stores: res.Stores, tokens: tokens, cleanup: res.Cleanup}, nil
}

// userByEmail resolves the user a command acts for.
func (a *app) userByEmail(ctx context.Context, email string) (core.User, error) {
	if email == "" {
		return core.User{}, errors.New("--email is required")
	}
	u, err := a.stores.Users.GetUserByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, fmt.Errorf("no user with email %s", email)
	}
	return u, err
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, 5*time.Minute)
}

func (e *environment) now() time.Time {
	if e.clock != nil {
		return e.clock()
	}
	return time.Now()
}
