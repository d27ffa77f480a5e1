package api

import (
	"context"
	"time"

	"github.com/roessland/coachsync/bridge"
	"github.com/roessland/coachsync/trainerroad"
)

// fakeIntegration implements Integration for testing
type fakeIntegration struct {
	authResult bridge.AuthResult
	status     bridge.Status
	activities []trainerroad.Activity
	page       trainerroad.CatalogPage
	templates  []trainerroad.WorkoutTemplate
	err        error

	lastPrincipal bridge.Principal
	lastIdentity  string
	lastLimit     int
	lastStart     time.Time
	lastEnd       time.Time
	lastPageSize  int
	lastPage      int
	lastSearch    string
	lastIDs       []int64
	signOuts      int
}

func (f *fakeIntegration) Authenticate(ctx context.Context, p bridge.Principal, identity, secret string) (bridge.AuthResult, error) {
	f.lastPrincipal = p
	f.lastIdentity = identity
	return f.authResult, f.err
}

func (f *fakeIntegration) Status(ctx context.Context, p bridge.Principal) (bridge.Status, error) {
	f.lastPrincipal = p
	return f.status, f.err
}

func (f *fakeIntegration) SignOut(ctx context.Context, p bridge.Principal) {
	f.lastPrincipal = p
	f.signOuts++
}

func (f *fakeIntegration) RecentActivities(ctx context.Context, p bridge.Principal, limit int) ([]trainerroad.Activity, error) {
	f.lastPrincipal = p
	f.lastLimit = limit
	return f.activities, f.err
}

func (f *fakeIntegration) ActivitiesBetween(ctx context.Context, p bridge.Principal, start, end time.Time) ([]trainerroad.Activity, error) {
	f.lastPrincipal = p
	f.lastStart, f.lastEnd = start, end
	return f.activities, f.err
}

func (f *fakeIntegration) WorkoutCatalog(ctx context.Context, p bridge.Principal, pageSize, pageNumber int, search string) (trainerroad.CatalogPage, error) {
	f.lastPrincipal = p
	f.lastPageSize, f.lastPage, f.lastSearch = pageSize, pageNumber, search
	return f.page, f.err
}

func (f *fakeIntegration) WorkoutInformation(ctx context.Context, p bridge.Principal, ids []int64) ([]trainerroad.WorkoutTemplate, error) {
	f.lastPrincipal = p
	f.lastIDs = ids
	return f.templates, f.err
}
