package cs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/roessland/coachsync/api"
	"github.com/roessland/coachsync/bridge"
	"github.com/roessland/coachsync/pkg/output"
)

// Connect logs in with the configured credentials and stores the session
func Connect(ctx context.Context, config Config, opts ...Option) error {
	if err := config.validateCredentials(); err != nil {
		return err
	}
	app, err := setupDependencies(ctx, config, "connect", opts...)
	if err != nil {
		return err
	}
	defer app.Close()

	app.Logger.Info("connecting", "user", app.Principal.ID)
	app.Presentation.ShowProgress("Logging in to TrainerRoad...")

	result, err := app.Service.Authenticate(ctx, app.Principal, config.Username, config.Password)
	if err != nil {
		app.Presentation.ShowError(err, "Failed to connect")
		return err
	}
	if !result.Success {
		err := fmt.Errorf("login rejected: %s", result.Message)
		app.Presentation.ShowError(err, "TrainerRoad rejected the login: %s", result.Message)
		return err
	}

	if app.Output.JSONMode() {
		return app.Output.JSON(result)
	}
	app.Presentation.ShowStatus("Connected to TrainerRoad")
	return nil
}

// Status verifies the stored session against the platform
func Status(ctx context.Context, config Config, opts ...Option) error {
	app, err := setupDependencies(ctx, config, "status", opts...)
	if err != nil {
		return err
	}
	defer app.Close()

	app.Presentation.ShowProgress("Checking TrainerRoad session...")
	status, err := app.Service.Status(ctx, app.Principal)
	if err != nil {
		app.Presentation.ShowError(err, "Failed to check status")
		return err
	}
	app.Presentation.ShowConnection(status)
	return nil
}

// SignOut forgets the stored session
func SignOut(ctx context.Context, config Config, opts ...Option) error {
	app, err := setupDependencies(ctx, config, "signout", opts...)
	if err != nil {
		return err
	}
	defer app.Close()

	app.Service.SignOut(ctx, app.Principal)
	if app.Output.JSONMode() {
		return app.Output.JSON(map[string]bool{"success": true})
	}
	app.Presentation.ShowStatus("Signed out of TrainerRoad")
	return nil
}

// Activities lists recent activities, or those in a date range when one is given
func Activities(ctx context.Context, config Config, ao ActivitiesOptions, opts ...Option) error {
	app, err := setupDependencies(ctx, config, "activities", opts...)
	if err != nil {
		return err
	}
	defer app.Close()

	if ao.SinceStr == "" && ao.UntilStr == "" {
		app.Presentation.ShowProgress("Fetching recent activities...")
		activities, err := app.Service.RecentActivities(ctx, app.Principal, ao.Limit)
		if err != nil {
			app.Presentation.ShowError(err, "Failed to fetch activities")
			return err
		}
		return app.Presentation.ShowActivities(activities)
	}

	since, until, err := ParseDateRange(ao.SinceStr, ao.UntilStr, time.Now())
	if err != nil {
		return err
	}
	app.Logger.Info("activity range", "since", since.Format("2006-01-02"), "until", until.Format("2006-01-02"))
	app.Presentation.ShowProgress("Fetching activities from %s to %s...", since.Format("2006-01-02"), until.Format("2006-01-02"))

	activities, err := app.Service.ActivitiesBetween(ctx, app.Principal, since, until)
	if err != nil {
		app.Presentation.ShowError(err, "Failed to fetch activities")
		return err
	}
	return app.Presentation.ShowActivities(activities)
}

// Catalog shows one page of the workout catalog
func Catalog(ctx context.Context, config Config, co CatalogOptions, opts ...Option) error {
	app, err := setupDependencies(ctx, config, "catalog", opts...)
	if err != nil {
		return err
	}
	defer app.Close()

	page, err := app.Service.WorkoutCatalog(ctx, app.Principal, co.PageSize, co.PageNumber, co.Search)
	if err != nil {
		app.Presentation.ShowError(err, "Failed to search the workout catalog")
		return err
	}
	return app.Presentation.ShowCatalog(page)
}

// Workouts shows detailed information for the given workout ids
func Workouts(ctx context.Context, config Config, ids []int64, opts ...Option) error {
	app, err := setupDependencies(ctx, config, "workouts", opts...)
	if err != nil {
		return err
	}
	defer app.Close()

	workouts, err := app.Service.WorkoutInformation(ctx, app.Principal, ids)
	if err != nil {
		app.Presentation.ShowError(err, "Failed to fetch workout information")
		return err
	}
	return app.Presentation.ShowWorkouts(workouts)
}

// Token issues a bearer token for the local user, for use with serve
func Token(config Config, ttl time.Duration, opts ...Option) error {
	if config.JWTSecret == "" {
		return fmt.Errorf("jwt.secret must be set to issue tokens")
	}
	if config.LocalUser == "" {
		return fmt.Errorf("local_user must be set")
	}
	if ttl <= 0 {
		ttl = tokenTTL
	}

	var o appOptions
	for _, opt := range opts {
		opt(&o)
	}
	ol := o.output
	if ol == nil {
		var err error
		ol, err = output.New(config.JSONMode)
		if err != nil {
			return fmt.Errorf("failed to create output system: %w", err)
		}
	}

	auth := api.AuthConfig{Secret: config.JWTSecret, Issuer: config.JWTIssuer}
	principal := bridge.Principal{ID: config.LocalUser, Email: config.NotifyEmail}
	expires := time.Now().Add(ttl)
	token, err := api.IssueToken(auth, principal, ttl)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}
	ol.Component("token").Info("token issued", "user", principal.ID, "expires", expires)
	return NewPresentationService(ol).ShowToken(token, expires)
}

// Serve exposes the integration over HTTP until interrupted
func Serve(ctx context.Context, config Config, opts ...Option) error {
	if config.JWTSecret == "" {
		return fmt.Errorf("jwt.secret must be set to serve the API")
	}
	config.JSONMode = true

	app, err := setupDependencies(ctx, config, "serve", opts...)
	if err != nil {
		return err
	}
	defer app.Close()

	auth := api.AuthConfig{Secret: config.JWTSecret, Issuer: config.JWTIssuer}
	router := api.NewRouter(app.Service, auth, app.Output.Component("api").Slog())
	server := api.NewServer(api.DefaultServerConfig(config.HTTPAddress), router)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		app.Logger.Info("listening", "address", config.HTTPAddress)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	app.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
