package bridge

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/roessland/coachsync/trainerroad"
)

func requireIntegrationError(t *testing.T, err error, status int) *IntegrationError {
	t.Helper()
	var ie *IntegrationError
	if !errors.As(err, &ie) {
		t.Fatalf("Expected IntegrationError, got %T: %v", err, err)
	}
	if ie.Status != status {
		t.Fatalf("Expected status %d, got %d (%v)", status, ie.Status, ie)
	}
	return ie
}

func TestAuthenticate(t *testing.T) {
	successBundle := trainerroad.ParseBundle(connectedBundle)

	tests := []struct {
		name          string
		identity      string
		secret        string
		loginResult   *trainerroad.LoginResult
		loginError    error
		upsertError   error
		expected      AuthResult
		expectStatus  int
		expectUpserts int
		expectLogins  int
	}{
		{
			name:          "success stores bundle",
			identity:      " a@b.com ",
			secret:        "right",
			loginResult:   &trainerroad.LoginResult{Bundle: successBundle},
			expected:      AuthResult{Success: true, Message: "connected"},
			expectUpserts: 1,
			expectLogins:  1,
		},
		{
			name:         "empty secret",
			identity:     "a@b.com",
			expected:     AuthResult{Success: false, Message: "identity and secret are required"},
			expectLogins: 0,
		},
		{
			name:         "blank identity",
			identity:     "   ",
			secret:       "right",
			expected:     AuthResult{Success: false, Message: "identity and secret are required"},
			expectLogins: 0,
		},
		{
			name:         "rejected credentials",
			identity:     "a@b.com",
			secret:       "wrong",
			loginError:   &trainerroad.RejectedError{Reason: "The username or password provided is incorrect."},
			expected:     AuthResult{Success: false, Message: "The username or password provided is incorrect."},
			expectLogins: 1,
		},
		{
			name:         "login page not readable",
			identity:     "a@b.com",
			secret:       "right",
			loginError:   trainerroad.ErrScrape,
			expected:     AuthResult{Success: false, Message: scrapeFailureMessage},
			expectLogins: 1,
		},
		{
			name:         "platform unavailable",
			identity:     "a@b.com",
			secret:       "right",
			loginError:   &trainerroad.StatusError{StatusCode: 503, Bootstrap: true},
			expectStatus: http.StatusServiceUnavailable,
			expectLogins: 1,
		},
		{
			name:         "timeout",
			identity:     "a@b.com",
			secret:       "right",
			loginError:   trainerroad.ErrTimeout,
			expectStatus: http.StatusGatewayTimeout,
			expectLogins: 1,
		},
		{
			name:         "rate limited",
			identity:     "a@b.com",
			secret:       "right",
			loginError:   &trainerroad.RateLimitError{RetryAfter: time.Minute},
			expectStatus: http.StatusTooManyRequests,
			expectLogins: 1,
		},
		{
			name:          "store write fails",
			identity:      "a@b.com",
			secret:        "right",
			loginResult:   &trainerroad.LoginResult{Bundle: successBundle},
			upsertError:   errors.New("disk full"),
			expectStatus:  http.StatusInternalServerError,
			expectUpserts: 1,
			expectLogins:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newFixture()
			f.upstream.LoginResult = tt.loginResult
			f.upstream.LoginError = tt.loginError
			f.store.UpsertError = tt.upsertError

			// Act
			result, err := f.service.Authenticate(context.Background(), alice, tt.identity, tt.secret)

			// Assert
			if tt.expectStatus != 0 {
				requireIntegrationError(t, err, tt.expectStatus)
			} else {
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
				if result != tt.expected {
					t.Errorf("result = %+v, want %+v", result, tt.expected)
				}
			}
			if f.upstream.LoginCalls != tt.expectLogins {
				t.Errorf("Expected %d login calls, got %d", tt.expectLogins, f.upstream.LoginCalls)
			}
			if f.store.UpsertCalls != tt.expectUpserts {
				t.Errorf("Expected %d upserts, got %d", tt.expectUpserts, f.store.UpsertCalls)
			}
		})
	}
}

func TestAuthenticate_TrimsIdentity(t *testing.T) {
	f := newFixture()
	f.upstream.LoginResult = &trainerroad.LoginResult{Bundle: trainerroad.ParseBundle(connectedBundle)}

	if _, err := f.service.Authenticate(context.Background(), alice, "  a@b.com\n", "right"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if f.upstream.LastIdentity != "a@b.com" {
		t.Errorf("Expected trimmed identity, got %q", f.upstream.LastIdentity)
	}
	if got := f.store.Sessions[alice.ID].Bundle; got != connectedBundle {
		t.Errorf("Stored bundle = %q, want %q", got, connectedBundle)
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name             string
		bundle           string
		probeError       error
		expected         Status
		expectProbes     int
		expectDeactivate int
		expectNotified   int
	}{
		{
			name:     "no session",
			expected: StatusNotConnected,
		},
		{
			name:             "stale bundle without marker",
			bundle:           "ARRAffinity=node-8",
			expected:         StatusStale,
			expectDeactivate: 1,
		},
		{
			name:         "connected",
			bundle:       connectedBundle,
			expected:     StatusConnected,
			expectProbes: 1,
		},
		{
			name:             "probe unauthorized expires and notifies",
			bundle:           connectedBundle,
			probeError:       trainerroad.ErrUnauthorized,
			expected:         StatusStale,
			expectProbes:     1,
			expectDeactivate: 1,
			expectNotified:   1,
		},
		{
			name:             "probe timeout deactivates without notifying",
			bundle:           connectedBundle,
			probeError:       trainerroad.ErrTimeout,
			expected:         StatusStale,
			expectProbes:     1,
			expectDeactivate: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newFixture()
			if tt.bundle != "" {
				f.connect(alice, tt.bundle)
			}
			f.upstream.ProbeError = tt.probeError

			// Act
			status, err := f.service.Status(context.Background(), alice)
			connected, checkErr := f.service.CheckStatus(context.Background(), alice)

			// Assert
			if err != nil || checkErr != nil {
				t.Fatalf("Unexpected errors: %v, %v", err, checkErr)
			}
			if status != tt.expected {
				t.Errorf("Status = %s, want %s", status, tt.expected)
			}
			if connected != (tt.expected == StatusConnected) {
				t.Errorf("CheckStatus = %v for status %s", connected, tt.expected)
			}

			// The second call sees a deactivated row when the first one failed
			wantProbes := tt.expectProbes
			if tt.expected == StatusConnected {
				wantProbes *= 2
			}
			if f.upstream.ProbeCalls != wantProbes {
				t.Errorf("Expected %d probes, got %d (%s)", wantProbes, f.upstream.ProbeCalls, f)
			}
			if f.store.DeactivateCalls != tt.expectDeactivate {
				t.Errorf("Expected %d deactivations, got %d", tt.expectDeactivate, f.store.DeactivateCalls)
			}
			if len(f.notifier.Notified) != tt.expectNotified {
				t.Errorf("Expected %d notifications, got %d", tt.expectNotified, len(f.notifier.Notified))
			}
		})
	}
}

func TestStatus_StoreFailure(t *testing.T) {
	f := newFixture()
	f.store.GetError = errors.New("database is locked")

	_, err := f.service.CheckStatus(context.Background(), alice)

	requireIntegrationError(t, err, http.StatusInternalServerError)
}

func TestSignOut(t *testing.T) {
	// Arrange
	f := newFixture()
	f.connect(alice, connectedBundle)

	// Act - twice, the second one is a no-op
	f.service.SignOut(context.Background(), alice)
	f.service.SignOut(context.Background(), alice)

	// Assert
	if f.store.Sessions[alice.ID].Active {
		t.Error("Expected session to be inactive")
	}
	status, _ := f.service.Status(context.Background(), alice)
	if status != StatusNotConnected {
		t.Errorf("Expected not connected after sign-out, got %s", status)
	}
}

func TestSignOut_StoreFailureIsLogged(t *testing.T) {
	f := newFixture()
	f.store.DeactivateError = errors.New("connection reset")

	f.service.SignOut(context.Background(), alice)

	if !f.logger.HasMessage("session_deactivate_failed") {
		t.Error("Expected deactivate failure to be logged")
	}
}

func TestDataCalls_RequireSession(t *testing.T) {
	ctx := context.Background()
	calls := map[string]func(s *Service) error{
		"recent activities": func(s *Service) error {
			_, err := s.RecentActivities(ctx, alice, 20)
			return err
		},
		"activities between": func(s *Service) error {
			_, err := s.ActivitiesBetween(ctx, alice, time.Now().AddDate(0, 0, -7), time.Now())
			return err
		},
		"workout catalog": func(s *Service) error {
			_, err := s.WorkoutCatalog(ctx, alice, 20, 1, "")
			return err
		},
		"workout information": func(s *Service) error {
			_, err := s.WorkoutInformation(ctx, alice, []int64{1})
			return err
		},
	}

	for name, call := range calls {
		t.Run(name+" without session", func(t *testing.T) {
			f := newFixture()

			err := call(f.service)

			ie := requireIntegrationError(t, err, http.StatusUnauthorized)
			if !errors.Is(ie, ErrNotConnected) {
				t.Errorf("Expected ErrNotConnected, got %v", ie)
			}
			if f.upstream.DataCalls != 0 || f.upstream.ProbeCalls != 0 {
				t.Errorf("Expected zero upstream calls, got %s", f)
			}
		})

		t.Run(name+" with stale session", func(t *testing.T) {
			f := newFixture()
			f.connect(alice, "ARRAffinity=node-8")

			err := call(f.service)

			requireIntegrationError(t, err, http.StatusUnauthorized)
			if f.upstream.DataCalls != 0 {
				t.Errorf("Expected zero upstream calls, got %s", f)
			}
		})

		t.Run(name+" with expired session", func(t *testing.T) {
			f := newFixture()
			f.connect(alice, connectedBundle)
			f.upstream.CallError = trainerroad.ErrUnauthorized

			err := call(f.service)

			requireIntegrationError(t, err, http.StatusUnauthorized)
			if f.store.DeactivateCalls != 1 {
				t.Errorf("Expected exactly one deactivation, got %d", f.store.DeactivateCalls)
			}
			if len(f.notifier.Notified) != 1 || f.notifier.Notified[0] != alice {
				t.Errorf("Expected one notification for alice, got %v", f.notifier.Notified)
			}
			if f.store.Sessions[alice.ID].Active {
				t.Error("Expected session to be inactive")
			}
		})
	}
}

func TestDataCalls_ErrorMapping(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		status      int
		message     string
		retryAfter  time.Duration
		deactivates int
	}{
		{"rate limited", &trainerroad.RateLimitError{RetryAfter: 2 * time.Minute}, http.StatusTooManyRequests, "", 2 * time.Minute, 0},
		{"timeout", trainerroad.ErrTimeout, http.StatusGatewayTimeout, "", 0, 0},
		{"status error hides body", &trainerroad.StatusError{StatusCode: 500, BodyPrefix: "<html>stack trace</html>"}, http.StatusBadGateway, "upstream returned status 500", 0, 0},
		{"invalid shape", trainerroad.ErrInvalidUpstreamShape, http.StatusBadGateway, "", 0, 0},
		{"transport", trainerroad.ErrTransport, http.StatusBadGateway, "", 0, 0},
		{"redirect to login", errors.Join(trainerroad.ErrUnauthorized, trainerroad.ErrRedirectedToLogin), http.StatusUnauthorized, "", 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newFixture()
			f.connect(alice, connectedBundle)
			f.upstream.CallError = tt.err

			// Act
			_, err := f.service.RecentActivities(context.Background(), alice, 10)

			// Assert
			ie := requireIntegrationError(t, err, tt.status)
			if tt.message != "" && ie.Message != tt.message {
				t.Errorf("Message = %q, want %q", ie.Message, tt.message)
			}
			if strings.Contains(ie.Message, "stack trace") {
				t.Errorf("Upstream body leaked into message: %q", ie.Message)
			}
			if ie.RetryAfter != tt.retryAfter {
				t.Errorf("RetryAfter = %s, want %s", ie.RetryAfter, tt.retryAfter)
			}
			if f.store.DeactivateCalls != tt.deactivates {
				t.Errorf("Expected %d deactivations, got %d", tt.deactivates, f.store.DeactivateCalls)
			}
			if !errors.Is(err, tt.err) && !errors.Is(ie.Err, tt.err) {
				t.Errorf("Expected cause to be kept, got %v", ie.Err)
			}
		})
	}
}

func TestDataCalls_Validation(t *testing.T) {
	f := newFixture()
	f.connect(alice, connectedBundle)
	ctx := context.Background()
	now := time.Now()

	_, err := f.service.RecentActivities(ctx, alice, -1)
	requireIntegrationError(t, err, http.StatusBadRequest)

	_, err = f.service.ActivitiesBetween(ctx, alice, now, now.AddDate(0, 0, -1))
	requireIntegrationError(t, err, http.StatusBadRequest)

	_, err = f.service.ActivitiesBetween(ctx, alice, time.Time{}, now)
	requireIntegrationError(t, err, http.StatusBadRequest)

	_, err = f.service.WorkoutCatalog(ctx, alice, -5, 1, "")
	requireIntegrationError(t, err, http.StatusBadRequest)

	_, err = f.service.WorkoutInformation(ctx, alice, nil)
	requireIntegrationError(t, err, http.StatusBadRequest)

	_, err = f.service.WorkoutInformation(ctx, alice, make([]int64, maxWorkoutIDs+1))
	ie := requireIntegrationError(t, err, http.StatusBadRequest)
	if !errors.Is(ie, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", ie)
	}

	if f.upstream.DataCalls != 0 {
		t.Errorf("Expected validation to happen before upstream calls, got %s", f)
	}
}

func TestDataCalls_PassThrough(t *testing.T) {
	// Arrange
	f := newFixture()
	f.connect(alice, connectedBundle)
	f.upstream.Activities = []trainerroad.Activity{{ID: 2}, {ID: 1}}
	f.upstream.Catalog = trainerroad.CatalogPage{Items: []trainerroad.WorkoutTemplate{{ID: 9}}, TotalCount: 412, PageSize: 10, PageNumber: 2}
	f.upstream.Templates = []trainerroad.WorkoutTemplate{{ID: 9, Name: "Pettit"}}
	ctx := context.Background()

	// Act
	activities, err := f.service.RecentActivities(ctx, alice, 20)
	if err != nil {
		t.Fatalf("RecentActivities: %v", err)
	}
	page, err := f.service.WorkoutCatalog(ctx, alice, 10, 2, "pettit")
	if err != nil {
		t.Fatalf("WorkoutCatalog: %v", err)
	}
	templates, err := f.service.WorkoutInformation(ctx, alice, []int64{9})
	if err != nil {
		t.Fatalf("WorkoutInformation: %v", err)
	}

	// Assert
	if len(activities) != 2 || f.upstream.LastLimit != 20 {
		t.Errorf("Unexpected activities %v with limit %d", activities, f.upstream.LastLimit)
	}
	if page.TotalCount != 412 || page.PageNumber != 2 {
		t.Errorf("Expected paging to pass through, got %+v", page)
	}
	if f.upstream.LastQuery != (trainerroad.CatalogQuery{PageSize: 10, PageNumber: 2, SearchText: "pettit"}) {
		t.Errorf("Unexpected catalog query %+v", f.upstream.LastQuery)
	}
	if len(templates) != 1 || f.upstream.LastIDs[0] != 9 {
		t.Errorf("Unexpected templates %v", templates)
	}
	if f.upstream.LastBundle.String() != connectedBundle {
		t.Errorf("Expected stored bundle to be replayed, got %q", f.upstream.LastBundle.String())
	}
}

func TestExpire_NotificationFailureIsLogged(t *testing.T) {
	f := newFixture()
	f.connect(alice, connectedBundle)
	f.upstream.CallError = trainerroad.ErrUnauthorized
	f.notifier.Error = errors.New("mail provider down")

	_, err := f.service.RecentActivities(context.Background(), alice, 10)

	requireIntegrationError(t, err, http.StatusUnauthorized)
	if !f.logger.HasMessage("expiry_notification_failed") {
		t.Error("Expected notification failure to be logged")
	}
}

func TestNewService_NilNotifier(t *testing.T) {
	f := newFixture()
	f.connect(alice, connectedBundle)
	f.upstream.CallError = trainerroad.ErrUnauthorized
	service := NewService(Deps{Upstream: f.upstream, Store: f.store})

	_, err := service.RecentActivities(context.Background(), alice, 10)

	requireIntegrationError(t, err, http.StatusUnauthorized)
	if f.store.DeactivateCalls != 1 {
		t.Errorf("Expected one deactivation, got %d", f.store.DeactivateCalls)
	}
}
