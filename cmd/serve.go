package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/chordpaper/internal/models"
	"github.com/desertthunder/chordpaper/internal/repositories"
	"github.com/desertthunder/chordpaper/internal/server"
	"github.com/desertthunder/chordpaper/internal/services"
	"github.com/desertthunder/chordpaper/internal/shared"
	"github.com/desertthunder/chordpaper/internal/usecases"
)

// Serve runs the HTTP API until SIGINT or SIGTERM, then drains in-flight requests.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return err
	}

	db, err := r.openDatabase(config, cmd.Bool("migrate"))
	if err != nil {
		return err
	}
	defer db.Close()

	publisher, closePublisher, err := r.newPublisher(config)
	if err != nil {
		return err
	}
	defer func() {
		if err := closePublisher(); err != nil {
			r.logger.Warn("failed to close job publisher", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var limiter *server.RateLimiter
	if config.Server.RequestsPerSecond > 0 {
		limiter = server.NewRateLimiter(config.Server.RequestsPerSecond, config.Server.Burst)
		limiter.StartCleanup(time.Minute, ctx.Done())
	}

	handler, err := r.buildAPI(ctx, config, db, publisher, limiter)
	if err != nil {
		return err
	}

	readTimeout, writeTimeout, shutdownTimeout := config.Server.Timeouts()
	httpServer := &http.Server{
		Addr:         config.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("starting chordpaper API", "addr", httpServer.Addr, "queue", config.Queue.Name)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err := <-serverErrors:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	r.logger.Info("shutting down", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func (r *Runner) openDatabase(config *shared.Config, migrate bool) (*sql.DB, error) {
	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if migrate {
		r.logger.Info("running database migrations", "path", config.Database.Path)
		if err := shared.RunMigrations(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return db, nil
}

// buildAPI wires repositories, the Google verifier, the usecases and the router. The verifier refreshes its keys
// until ctx is done.
func (r *Runner) buildAPI(ctx context.Context, config *shared.Config, db *sql.DB, publisher models.JobPublisher, limiter *server.RateLimiter) (http.Handler, error) {
	songs := repositories.NewSongRepository(db)
	tracks := repositories.NewTrackListRepository(db)
	users := repositories.NewUserRepository(db)

	logger := shared.WithLogger(r.logger, "component", "api")
	verifier, err := r.newVerifier(ctx, config)
	if err != nil {
		return nil, err
	}

	return server.NewAPI(server.Services{
		Songs:  usecases.NewSongUsecase(songs, verifier),
		Tracks: usecases.NewTrackUsecase(tracks, songs, verifier, publisher, usecases.WithLogger(logger)),
		Users:  usecases.NewUserUsecase(users, songs, verifier),
	}, server.APIOptions{
		Logger:         logger,
		AllowedOrigins: config.Server.AllowedOrigins,
		Limiter:        limiter,
	}), nil
}

func (r *Runner) newVerifier(ctx context.Context, config *shared.Config) (*services.GoogleVerifier, error) {
	return services.NewGoogleVerifier(ctx, services.GoogleVerifierOpts{
		ClientID:   config.Google.ClientID,
		CertsURL:   config.Google.CertsURL,
		HTTPClient: r.httpClient,
		Logger:     shared.WithLogger(r.logger, "component", "google"),
	})
}
