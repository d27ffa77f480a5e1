package bridge

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/roessland/coachsync/store"
	"github.com/roessland/coachsync/trainerroad"
)

const (
	// scrapeFailureMessage is shown when the login page markup could not be read
	scrapeFailureMessage = "the login page could not be read, please retry"
	// notifyTimeout bounds the best-effort expiry notification
	notifyTimeout = 10 * time.Second
	// maxWorkoutIDs bounds a single workout information lookup
	maxWorkoutIDs = 100
)

// Deps are the collaborators of a Service
type Deps struct {
	Upstream Upstream
	Store    SessionStore
	// Notifier is optional
	Notifier Notifier
	// Logger is optional and defaults to slog.Default()
	Logger Logger
}

// Service is the single entry point for platform integration. It owns no
// session state beyond what the store holds.
type Service struct {
	upstream Upstream
	store    SessionStore
	notifier Notifier
	logger   Logger
}

// NewService creates a new integration service
func NewService(deps Deps) *Service {
	s := &Service{
		upstream: deps.Upstream,
		store:    deps.Store,
		notifier: deps.Notifier,
		logger:   deps.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Authenticate logs in to the platform and stores the resulting session.
// Rejected credentials are a failed result, not an error.
func (s *Service) Authenticate(ctx context.Context, p Principal, identity, secret string) (AuthResult, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" || secret == "" {
		return AuthResult{Success: false, Message: "identity and secret are required"}, nil
	}

	result, err := s.upstream.Login(ctx, identity, secret)
	if err != nil {
		var rejected *trainerroad.RejectedError
		switch {
		case errors.As(err, &rejected):
			s.logger.Info("login_rejected", "user_id", p.ID, "reason", rejected.Reason)
			return AuthResult{Success: false, Message: rejected.Reason}, nil
		case errors.Is(err, trainerroad.ErrScrape):
			s.logger.Warn("login_page_unreadable", "user_id", p.ID, "error", err)
			return AuthResult{Success: false, Message: scrapeFailureMessage}, nil
		}
		s.logger.Error("login_failed", "user_id", p.ID, "error", err)
		return AuthResult{}, mapUpstreamError(err)
	}

	if err := s.store.Upsert(ctx, p.ID, result.Bundle.String()); err != nil {
		s.logger.Error("session_store_failed", "user_id", p.ID, "error", err)
		return AuthResult{}, storeFailure(err)
	}

	s.logger.Info("session_connected", "user_id", p.ID, "cookies", result.Bundle.Names())
	return AuthResult{Success: true, Message: "connected"}, nil
}

// Status reports the connection state. A stored session is probed against the
// platform; a session that fails the probe is deactivated and reported stale.
func (s *Service) Status(ctx context.Context, p Principal) (Status, error) {
	session, err := s.store.Get(ctx, p.ID)
	if errors.Is(err, store.ErrNotFound) {
		return StatusNotConnected, nil
	}
	if err != nil {
		return StatusNotConnected, storeFailure(err)
	}

	bundle := trainerroad.ParseBundle(session.Bundle)
	if !s.upstream.IsAuthenticated(bundle) {
		s.logger.Warn("session_stale", "user_id", p.ID, "cookies", bundle.Names())
		s.deactivate(ctx, p)
		return StatusStale, nil
	}

	if err := s.upstream.Probe(ctx, bundle); err != nil {
		s.logger.Warn("session_probe_failed", "user_id", p.ID, "error", err)
		if errors.Is(err, trainerroad.ErrUnauthorized) {
			s.expire(ctx, p)
		} else {
			s.deactivate(ctx, p)
		}
		return StatusStale, nil
	}

	return StatusConnected, nil
}

// CheckStatus reports whether the principal has a working session
func (s *Service) CheckStatus(ctx context.Context, p Principal) (bool, error) {
	status, err := s.Status(ctx, p)
	if err != nil {
		return false, err
	}
	return status == StatusConnected, nil
}

// SignOut deactivates the stored session. It never fails.
func (s *Service) SignOut(ctx context.Context, p Principal) {
	s.deactivate(ctx, p)
	s.logger.Info("session_signed_out", "user_id", p.ID)
}

// RecentActivities returns the most recent completed workouts, newest first
func (s *Service) RecentActivities(ctx context.Context, p Principal, limit int) ([]trainerroad.Activity, error) {
	if limit < 0 {
		return nil, invalidArgument("limit must not be negative")
	}
	bundle, err := s.session(ctx, p)
	if err != nil {
		return nil, err
	}

	activities, err := s.upstream.RecentActivities(ctx, bundle, limit)
	if err != nil {
		return nil, s.fail(ctx, p, "recent_activities", err)
	}
	return activities, nil
}

// ActivitiesBetween returns completed workouts between two dates, newest first
func (s *Service) ActivitiesBetween(ctx context.Context, p Principal, start, end time.Time) ([]trainerroad.Activity, error) {
	if start.IsZero() || end.IsZero() {
		return nil, invalidArgument("start and end dates are required")
	}
	if end.Before(start) {
		return nil, invalidArgument("end date must not be before start date")
	}
	bundle, err := s.session(ctx, p)
	if err != nil {
		return nil, err
	}

	activities, err := s.upstream.ActivitiesBetween(ctx, bundle, start, end)
	if err != nil {
		return nil, s.fail(ctx, p, "activities_between", err)
	}
	return activities, nil
}

// WorkoutCatalog searches the workout catalog. Paging fields are passed through.
func (s *Service) WorkoutCatalog(ctx context.Context, p Principal, pageSize, pageNumber int, search string) (trainerroad.CatalogPage, error) {
	if pageSize < 0 || pageNumber < 0 {
		return trainerroad.CatalogPage{}, invalidArgument("page size and page number must not be negative")
	}
	bundle, err := s.session(ctx, p)
	if err != nil {
		return trainerroad.CatalogPage{}, err
	}

	page, err := s.upstream.SearchCatalog(ctx, bundle, trainerroad.CatalogQuery{
		PageSize:   pageSize,
		PageNumber: pageNumber,
		SearchText: search,
	})
	if err != nil {
		return trainerroad.CatalogPage{}, s.fail(ctx, p, "workout_catalog", err)
	}
	return page, nil
}

// WorkoutInformation returns detail records for catalog workouts
func (s *Service) WorkoutInformation(ctx context.Context, p Principal, ids []int64) ([]trainerroad.WorkoutTemplate, error) {
	if len(ids) == 0 {
		return nil, invalidArgument("at least one workout id is required")
	}
	if len(ids) > maxWorkoutIDs {
		return nil, invalidArgument("at most %d workout ids can be requested at once", maxWorkoutIDs)
	}
	bundle, err := s.session(ctx, p)
	if err != nil {
		return nil, err
	}

	templates, err := s.upstream.WorkoutInformation(ctx, bundle, ids)
	if err != nil {
		return nil, s.fail(ctx, p, "workout_information", err)
	}
	return templates, nil
}

// session loads the principal's bundle without touching the platform
func (s *Service) session(ctx context.Context, p Principal) (trainerroad.Bundle, error) {
	session, err := s.store.Get(ctx, p.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notConnected()
	}
	if err != nil {
		s.logger.Error("session_load_failed", "user_id", p.ID, "error", err)
		return nil, storeFailure(err)
	}

	bundle := trainerroad.ParseBundle(session.Bundle)
	if !s.upstream.IsAuthenticated(bundle) {
		return nil, notConnected()
	}
	return bundle, nil
}

// fail maps an upstream error. An unauthorized response expires the session first.
func (s *Service) fail(ctx context.Context, p Principal, op string, err error) error {
	if errors.Is(err, trainerroad.ErrUnauthorized) {
		s.expire(ctx, p)
	}
	ie := mapUpstreamError(err)
	s.logger.Warn("upstream_call_failed", "op", op, "user_id", p.ID, "status", ie.Status, "error", err)
	return ie
}

// expire deactivates the session and notifies the principal
func (s *Service) expire(ctx context.Context, p Principal) {
	s.deactivate(ctx, p)
	s.logger.Info("session_expired", "user_id", p.ID)

	if s.notifier == nil {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := s.notifier.SessionExpired(nctx, p); err != nil {
		s.logger.Warn("expiry_notification_failed", "user_id", p.ID, "error", err)
	}
}

// deactivate is best effort: failures are logged, never returned
func (s *Service) deactivate(ctx context.Context, p Principal) {
	if err := s.store.Deactivate(ctx, p.ID); err != nil {
		s.logger.Error("session_deactivate_failed", "user_id", p.ID, "error", err)
		return
	}
	s.logger.Debug("session_deactivated", "user_id", p.ID)
}
