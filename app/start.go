package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Black-And-White-Club/levelbot/app/shared/attr"
)

// ShutdownTimeout bounds how long Run waits for components to stop.
const ShutdownTimeout = 30 * time.Second

// Run starts the router, the platform session, the scheduler and the API,
// then blocks until ctx is cancelled or a component fails. Everything is
// stopped before it returns.
func (app *App) Run(ctx context.Context) error {
	logger := app.Observability.Logger
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)

	go func() {
		if err := app.Router.Run(ctx); err != nil {
			errCh <- fmt.Errorf("router: %w", err)
		}
	}()
	select {
	case <-app.Router.Running():
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
	logger.InfoContext(ctx, "Router running")

	if app.Discord != nil {
		if err := app.Discord.Open(ctx); err != nil {
			return err
		}
	}

	app.Cron.Start(ctx)
	if app.River != nil {
		if err := app.River.Start(ctx); err != nil {
			return err
		}
	}

	go func() {
		if err := app.API.ListenAndServe(ctx); err != nil {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.InfoContext(ctx, "Shutdown requested")
	case runErr = <-errCh:
		logger.ErrorContext(ctx, "Component failed, shutting down", attr.Error(runErr))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer shutdownCancel()

	var errs []error
	if err := app.API.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("api shutdown: %w", err))
	}
	if app.River != nil {
		if err := app.River.Stop(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := app.Cron.Stop(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(runErr, errors.Join(errs...))
}
