package trainerroad

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// isoDate is the date format the activities endpoint expects
const isoDate = "2006-01-02"

// Probe performs the lightweight authenticated call used to verify a session
func (c *Client) Probe(ctx context.Context, bundle Bundle) error {
	_, err := c.Call(ctx, http.MethodGet, c.cfg.Endpoints.Probe, nil, nil, bundle)
	return err
}

// RecentActivities retrieves the most recent completed workouts
func (c *Client) RecentActivities(ctx context.Context, bundle Bundle, limit int) ([]Activity, error) {
	resp, err := c.Call(ctx, http.MethodGet, c.cfg.Endpoints.RecentActivities, nil, nil, bundle)
	if err != nil {
		return nil, err
	}
	return NormalizeActivities(resp.Body, limit)
}

// ActivitiesBetween retrieves completed workouts between two dates (inclusive)
func (c *Client) ActivitiesBetween(ctx context.Context, bundle Bundle, start, end time.Time) ([]Activity, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("end %s is before start %s", end.Format(isoDate), start.Format(isoDate))
	}
	query := url.Values{}
	query.Set("start", start.Format(isoDate))
	query.Set("end", end.Format(isoDate))

	resp, err := c.Call(ctx, http.MethodGet, c.cfg.Endpoints.Activities, query, nil, bundle)
	if err != nil {
		return nil, err
	}
	return NormalizeActivities(resp.Body, MaxActivities)
}

// SearchCatalog runs a workout catalog search. Paging fields come back as the platform sent them.
func (c *Client) SearchCatalog(ctx context.Context, bundle Bundle, q CatalogQuery) (CatalogPage, error) {
	q = q.normalized()
	resp, err := c.Call(ctx, http.MethodPost, c.cfg.Endpoints.WorkoutCatalog, nil, newCatalogPredicate(q), bundle)
	if err != nil {
		return CatalogPage{}, err
	}
	return NormalizeCatalog(resp.Body, q)
}

// WorkoutInformation retrieves detail records for the given workout ids
func (c *Client) WorkoutInformation(ctx context.Context, bundle Bundle, ids []int64) ([]WorkoutTemplate, error) {
	if len(ids) == 0 {
		return []WorkoutTemplate{}, nil
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	query := url.Values{}
	query.Set("ids", strings.Join(parts, ","))

	resp, err := c.Call(ctx, http.MethodGet, c.cfg.Endpoints.WorkoutInformation, query, nil, bundle)
	if err != nil {
		return nil, err
	}
	return NormalizeWorkoutTemplates(resp.Body)
}
