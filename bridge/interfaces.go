package bridge

import (
	"context"
	"time"

	"github.com/roessland/coachsync/store"
	"github.com/roessland/coachsync/trainerroad"
)

// Upstream abstracts the platform client for testing
type Upstream interface {
	Login(ctx context.Context, identity, secret string) (*trainerroad.LoginResult, error)
	IsAuthenticated(b trainerroad.Bundle) bool
	Probe(ctx context.Context, bundle trainerroad.Bundle) error
	RecentActivities(ctx context.Context, bundle trainerroad.Bundle, limit int) ([]trainerroad.Activity, error)
	ActivitiesBetween(ctx context.Context, bundle trainerroad.Bundle, start, end time.Time) ([]trainerroad.Activity, error)
	SearchCatalog(ctx context.Context, bundle trainerroad.Bundle, q trainerroad.CatalogQuery) (trainerroad.CatalogPage, error)
	WorkoutInformation(ctx context.Context, bundle trainerroad.Bundle, ids []int64) ([]trainerroad.WorkoutTemplate, error)
}

// SessionStore persists one cookie bundle per local user
type SessionStore interface {
	// Get returns the active session or store.ErrNotFound
	Get(ctx context.Context, userID string) (store.Session, error)
	Upsert(ctx context.Context, userID, bundle string) error
	Deactivate(ctx context.Context, userID string) error
}

// Notifier is told when a stored session stops working
type Notifier interface {
	SessionExpired(ctx context.Context, p Principal) error
}

// Logger interface abstracts logging for testing
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Principal is the local user on whose behalf an operation runs
type Principal struct {
	ID    string
	Email string
}

// Status is the connection state of a principal
type Status int

const (
	// StatusNotConnected means no active session is stored
	StatusNotConnected Status = iota
	// StatusStale means a session was stored but is not usable
	StatusStale
	// StatusConnected means the stored session was accepted by the platform
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusStale:
		return "stale"
	default:
		return "not_connected"
	}
}

// AuthResult is the user-facing outcome of a connect attempt
type AuthResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
