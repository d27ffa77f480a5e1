package trainerroad

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// MaxActivities caps every activity listing regardless of the requested limit
const MaxActivities = 50

// shapeMatcher tries to find the record list in a raw response
type shapeMatcher func(raw json.RawMessage) ([]json.RawMessage, bool)

// listKeys are the wrapper keys the platform has been seen to use, in priority order
var listKeys = []string{
	"Workouts", "workouts",
	"Activities", "activities",
	"data", "Data",
	"items", "Items",
	"results", "Results",
}

// shapeMatchers are tried in order; the first match wins
var shapeMatchers = buildShapeMatchers()

func buildShapeMatchers() []shapeMatcher {
	matchers := []shapeMatcher{bareArray}
	for _, key := range listKeys {
		matchers = append(matchers, keyedArray(key))
	}
	return matchers
}

// bareArray matches a response that is already a JSON array
func bareArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	var list []json.RawMessage
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, false
	}
	return list, true
}

// keyedArray matches an object whose key (exact case) holds an array
func keyedArray(key string) shapeMatcher {
	return func(raw json.RawMessage) ([]json.RawMessage, bool) {
		obj, ok := asObject(raw)
		if !ok {
			return nil, false
		}
		value, ok := obj[key]
		if !ok {
			return nil, false
		}
		return bareArray(value)
	}
}

// asObject decodes raw as a JSON object
func asObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// extractList runs the shape matchers over raw
func extractList(raw []byte) ([]json.RawMessage, error) {
	for _, match := range shapeMatchers {
		if list, ok := match(raw); ok {
			return list, nil
		}
	}
	return nil, fmt.Errorf("%w: no record list found", ErrInvalidUpstreamShape)
}

// decodeRecords decodes every element; any failure fails the whole call
func decodeRecords[T any](list []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(list))
	for i, item := range list {
		var record T
		if err := json.Unmarshal(item, &record); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrInvalidUpstreamShape, i, err)
		}
		out = append(out, record)
	}
	return out, nil
}

// clampLimit applies the MaxActivities cap. A non-positive limit means the cap.
func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxActivities {
		return MaxActivities
	}
	return limit
}

// NormalizeActivities maps a completed-activity response onto Activity records,
// newest first, truncated to min(limit, MaxActivities)
func NormalizeActivities(raw []byte, limit int) ([]Activity, error) {
	list, err := extractList(raw)
	if err != nil {
		return nil, err
	}
	records, err := decodeRecords[upstreamActivity](list)
	if err != nil {
		return nil, err
	}

	activities := make([]Activity, len(records))
	for i, r := range records {
		activities[i] = r.normalize()
	}
	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].StartedAt.After(activities[j].StartedAt)
	})

	if n := clampLimit(limit); len(activities) > n {
		activities = activities[:n]
	}
	return activities, nil
}

// NormalizeWorkoutTemplates maps a catalog or workout-information response onto templates
func NormalizeWorkoutTemplates(raw []byte) ([]WorkoutTemplate, error) {
	list, err := extractList(raw)
	if err != nil {
		return nil, err
	}
	records, err := decodeRecords[upstreamWorkout](list)
	if err != nil {
		return nil, err
	}

	templates := make([]WorkoutTemplate, len(records))
	for i, r := range records {
		templates[i] = r.normalize()
	}
	return templates, nil
}

// totalCountKeys are the keys the upstream total may be sent under
var totalCountKeys = []string{"TotalCount", "totalCount", "Total", "total"}

// NormalizeCatalog maps a catalog search response onto a page. The total count
// is passed through verbatim; a bare array counts its own length.
func NormalizeCatalog(raw []byte, query CatalogQuery) (CatalogPage, error) {
	items, err := NormalizeWorkoutTemplates(raw)
	if err != nil {
		return CatalogPage{}, err
	}

	page := CatalogPage{
		Items:      items,
		TotalCount: len(items),
		PageSize:   query.PageSize,
		PageNumber: query.PageNumber,
	}

	if obj, ok := asObject(raw); ok {
		for _, key := range totalCountKeys {
			value, found := obj[key]
			if !found {
				continue
			}
			var total int
			if err := json.Unmarshal(value, &total); err != nil {
				return CatalogPage{}, fmt.Errorf("%w: %s is not a number", ErrInvalidUpstreamShape, key)
			}
			page.TotalCount = total
			break
		}
	}
	return page, nil
}
