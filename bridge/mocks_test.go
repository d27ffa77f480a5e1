package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/roessland/coachsync/store"
	"github.com/roessland/coachsync/trainerroad"
)

// MockUpstream implements Upstream for testing
type MockUpstream struct {
	LoginResult  *trainerroad.LoginResult
	LoginError   error
	ProbeError   error
	CallError    error
	Activities   []trainerroad.Activity
	Catalog      trainerroad.CatalogPage
	Templates    []trainerroad.WorkoutTemplate
	LoginCalls   int
	ProbeCalls   int
	DataCalls    int
	LastBundle   trainerroad.Bundle
	LastLimit    int
	LastQuery    trainerroad.CatalogQuery
	LastIDs      []int64
	LastIdentity string
}

func (m *MockUpstream) Login(ctx context.Context, identity, secret string) (*trainerroad.LoginResult, error) {
	m.LoginCalls++
	m.LastIdentity = identity
	if m.LoginError != nil {
		return nil, m.LoginError
	}
	return m.LoginResult, nil
}

func (m *MockUpstream) IsAuthenticated(b trainerroad.Bundle) bool {
	return trainerroad.IsAuthenticated(b, "TrainerRoadAuth")
}

func (m *MockUpstream) Probe(ctx context.Context, bundle trainerroad.Bundle) error {
	m.ProbeCalls++
	m.LastBundle = bundle
	return m.ProbeError
}

func (m *MockUpstream) RecentActivities(ctx context.Context, bundle trainerroad.Bundle, limit int) ([]trainerroad.Activity, error) {
	m.DataCalls++
	m.LastBundle = bundle
	m.LastLimit = limit
	if m.CallError != nil {
		return nil, m.CallError
	}
	return m.Activities, nil
}

func (m *MockUpstream) ActivitiesBetween(ctx context.Context, bundle trainerroad.Bundle, start, end time.Time) ([]trainerroad.Activity, error) {
	m.DataCalls++
	m.LastBundle = bundle
	if m.CallError != nil {
		return nil, m.CallError
	}
	return m.Activities, nil
}

func (m *MockUpstream) SearchCatalog(ctx context.Context, bundle trainerroad.Bundle, q trainerroad.CatalogQuery) (trainerroad.CatalogPage, error) {
	m.DataCalls++
	m.LastBundle = bundle
	m.LastQuery = q
	if m.CallError != nil {
		return trainerroad.CatalogPage{}, m.CallError
	}
	return m.Catalog, nil
}

func (m *MockUpstream) WorkoutInformation(ctx context.Context, bundle trainerroad.Bundle, ids []int64) ([]trainerroad.WorkoutTemplate, error) {
	m.DataCalls++
	m.LastBundle = bundle
	m.LastIDs = ids
	if m.CallError != nil {
		return nil, m.CallError
	}
	return m.Templates, nil
}

// MockStore implements SessionStore in memory
type MockStore struct {
	mu              sync.Mutex
	Sessions        map[string]store.Session
	GetError        error
	UpsertError     error
	DeactivateError error
	UpsertCalls     int
	DeactivateCalls int
}

func NewMockStore() *MockStore {
	return &MockStore{Sessions: make(map[string]store.Session)}
}

func (m *MockStore) Get(ctx context.Context, userID string) (store.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return store.Session{}, m.GetError
	}
	s, ok := m.Sessions[userID]
	if !ok || !s.Active {
		return store.Session{}, store.ErrNotFound
	}
	return s, nil
}

func (m *MockStore) Upsert(ctx context.Context, userID, bundle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertCalls++
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.Sessions[userID] = store.Session{UserID: userID, Bundle: bundle, Active: true, UpdatedAt: time.Now()}
	return nil
}

func (m *MockStore) Deactivate(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeactivateCalls++
	if m.DeactivateError != nil {
		return m.DeactivateError
	}
	if s, ok := m.Sessions[userID]; ok {
		s.Active = false
		m.Sessions[userID] = s
	}
	return nil
}

// MockNotifier records expiry notifications
type MockNotifier struct {
	Notified []Principal
	Error    error
}

func (m *MockNotifier) SessionExpired(ctx context.Context, p Principal) error {
	m.Notified = append(m.Notified, p)
	return m.Error
}

// MockLogger implements Logger for testing
type MockLogger struct {
	Messages []LogMessage
}

type LogMessage struct {
	Level   string
	Message string
	Args    []any
}

func (m *MockLogger) Debug(msg string, args ...any) { m.log("DEBUG", msg, args) }
func (m *MockLogger) Info(msg string, args ...any)  { m.log("INFO", msg, args) }
func (m *MockLogger) Warn(msg string, args ...any)  { m.log("WARN", msg, args) }
func (m *MockLogger) Error(msg string, args ...any) { m.log("ERROR", msg, args) }

func (m *MockLogger) log(level, msg string, args []any) {
	m.Messages = append(m.Messages, LogMessage{Level: level, Message: msg, Args: args})
}

// HasMessage reports whether a message was logged at any level
func (m *MockLogger) HasMessage(msg string) bool {
	for _, l := range m.Messages {
		if l.Message == msg {
			return true
		}
	}
	return false
}

// connectedBundle is a bundle that carries the marker cookie
const connectedBundle = "ARRAffinity=node-8; TrainerRoadAuth=auth-value"

var alice = Principal{ID: "user-1", Email: "alice@example.com"}

type fixture struct {
	upstream *MockUpstream
	store    *MockStore
	notifier *MockNotifier
	logger   *MockLogger
	service  *Service
}

func newFixture() *fixture {
	f := &fixture{
		upstream: &MockUpstream{},
		store:    NewMockStore(),
		notifier: &MockNotifier{},
		logger:   &MockLogger{},
	}
	f.service = NewService(Deps{Upstream: f.upstream, Store: f.store, Notifier: f.notifier, Logger: f.logger})
	return f
}

// connect stores an active session for p
func (f *fixture) connect(p Principal, bundle string) {
	f.store.Sessions[p.ID] = store.Session{UserID: p.ID, Bundle: bundle, Active: true, UpdatedAt: time.Now()}
}

func (f *fixture) String() string {
	return fmt.Sprintf("login=%d probe=%d data=%d upsert=%d deactivate=%d",
		f.upstream.LoginCalls, f.upstream.ProbeCalls, f.upstream.DataCalls, f.store.UpsertCalls, f.store.DeactivateCalls)
}
