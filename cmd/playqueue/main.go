// Package main provides the playqueue entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/playqueue/internal/app/restore"
	"github.com/osa030/playqueue/internal/app/session"
	"github.com/osa030/playqueue/internal/domain/track"
	"github.com/osa030/playqueue/internal/infra/config"
	"github.com/osa030/playqueue/internal/infra/logger"
	"github.com/osa030/playqueue/internal/infra/spotify"
	"github.com/osa030/playqueue/internal/infra/store"
)

var (
	app        = kingpin.New("playqueue", "playqueue interactive play queue")
	configPath = app.Flag("config", "Path to config file").Default("config/playqueue.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stderr)").String()

	// run command (default)
	runCmd     = app.Command("run", "Run the interactive console (default)").Default()
	runRestore = runCmd.Flag("restore", "Restore the persisted queue on start").Bool()

	// restore command
	restoreCmd      = app.Command("restore", "Restore the persisted queue, print it and exit")
	restorePlaylist = restoreCmd.Flag("playlist", "Playlist to use as the base sequence").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{
		Output: "stderr",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	closer, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closer.Close()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(command, cfg); err != nil {
		zlog.Error().Msgf("Error: %v", err)
		closer.Close()
		os.Exit(1)
	}
}

// loadConfig loads the config file, falling back to defaults when it does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		zlog.Info().Msgf("Config file %s not found, using defaults", path)
		return config.Default()
	}
	zlog.Info().Msgf("Loading config from %s", path)
	return config.Load(path)
}

// run executes the selected command. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(command string, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queueStore, err := store.Open(cfg.Store.Path)
	if err != nil {
		return errors.Wrap(err, "failed to open queue store")
	}
	defer queueStore.Close()

	opts := []session.Option{session.WithStore(queueStore)}
	if cfg.Spotify.Enabled() {
		resolver, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			RefreshToken: cfg.Spotify.RefreshToken,
			Market:       cfg.Spotify.Market,
		})
		if err != nil {
			return errors.Wrap(err, "failed to create Spotify client")
		}
		opts = append(opts, session.WithResolver(resolver))
	} else {
		zlog.Info().Msg("Spotify credentials not set, tracks carry their IDs only")
	}

	mgr := session.NewManager(cfg, opts...)
	defer mgr.Stop()

	switch command {
	case restoreCmd.FullCommand():
		return restoreOnly(ctx, mgr, *restorePlaylist)
	default:
		return interactive(ctx, mgr, *runRestore)
	}
}

func interactive(ctx context.Context, mgr *session.Manager, restoreQueue bool) error {
	if err := mgr.Start(ctx); err != nil {
		return errors.Wrap(err, "failed to start session")
	}

	if restoreQueue {
		res, err := mgr.Restore(ctx, nil, nil)
		switch {
		case err == nil:
			zlog.Info().Msgf("Restored queue: play_next=%d user_queue=%d skipped=%d",
				res.PlayNext, res.UserQueue, res.Skipped)
		case errors.Is(err, restore.ErrNothingStored):
			zlog.Info().Msg("Nothing to restore")
		default:
			zlog.Warn().Msgf("Failed to restore queue: %v", err)
		}
	}

	con := newConsole(mgr, os.Stdout)
	go con.watch(ctx)
	fmt.Fprintln(os.Stdout, "playqueue ready, type help for commands")
	return con.run(ctx, os.Stdin)
}

func restoreOnly(ctx context.Context, mgr *session.Manager, playlistURL string) error {
	var (
		base    []track.Track
		baseCtx *track.PlayContext
	)
	if playlistURL != "" {
		pl, err := mgr.FetchPlaylist(ctx, playlistURL)
		if err != nil {
			return err
		}
		base, baseCtx = pl.Tracks, pl.Context()
	}

	res, err := mgr.Restore(ctx, base, baseCtx)
	if err != nil {
		return err
	}
	fmt.Printf("restored: play_next=%d user_queue=%d skipped=%d\n", res.PlayNext, res.UserQueue, res.Skipped)
	newConsole(mgr, os.Stdout).show()
	return nil
}
