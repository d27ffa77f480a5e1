package trainerroad

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Progression describes the progression a workout or activity counts towards
type Progression struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Level float64 `json:"level"`
}

// Activity is a normalized completed workout
type Activity struct {
	ID              int64        `json:"id"`
	GUID            string       `json:"guid"`
	Name            string       `json:"name"`
	DurationSeconds int          `json:"durationSeconds"`
	ExpectedTSS     float64      `json:"expectedTss"`
	ActualTSS       float64      `json:"actualTss"`
	ExpectedKJ      float64      `json:"expectedKj"`
	ActualKJ        float64      `json:"actualKj"`
	IntensityFactor float64      `json:"intensityFactor"`
	CutShort        bool         `json:"cutShort"`
	HasGPS          bool         `json:"hasGps"`
	IsIndoorSwim    bool         `json:"isIndoorSwim"`
	IsExternal      bool         `json:"isExternal"`
	CanEstimateTSS  bool         `json:"canEstimateTss"`
	SurveyNote      string       `json:"surveyNote,omitempty"`
	Progression     *Progression `json:"progression,omitempty"`
	StartedAt       time.Time    `json:"startedAt"`
	ProcessedAt     time.Time    `json:"processedAt"`
}

// WorkoutTemplate is a normalized catalog entry. It is not a completed activity.
type WorkoutTemplate struct {
	ID              int64        `json:"id"`
	Name            string       `json:"name"`
	DescriptionHTML string       `json:"descriptionHtml,omitempty"`
	GoalHTML        string       `json:"goalHtml,omitempty"`
	DurationMinutes int          `json:"durationMinutes"`
	TSS             float64      `json:"tss"`
	KJ              float64      `json:"kj"`
	IntensityFactor float64      `json:"intensityFactor"`
	Progression     *Progression `json:"progression,omitempty"`
}

// CatalogPage is one page of the workout catalog. TotalCount is passed through from upstream.
type CatalogPage struct {
	Items      []WorkoutTemplate `json:"items"`
	TotalCount int               `json:"totalCount"`
	PageSize   int               `json:"pageSize"`
	PageNumber int               `json:"pageNumber"`
}

// upstreamProgression is the platform's progression shape
type upstreamProgression struct {
	ID    int64   `json:"Id"`
	Name  string  `json:"Name"`
	Level float64 `json:"Level"`
}

func (p *upstreamProgression) normalize() *Progression {
	if p == nil || (p.ID == 0 && p.Name == "") {
		return nil
	}
	return &Progression{ID: p.ID, Name: p.Name, Level: p.Level}
}

// upstreamActivity is a completed workout as the platform sends it.
// encoding/json matches keys case-insensitively, so camelCase variants decode too.
type upstreamActivity struct {
	ID              int64                `json:"Id"`
	GUID            string               `json:"Guid"`
	Name            string               `json:"Name"`
	Duration        float64              `json:"Duration"`
	ExpectedTSS     float64              `json:"ExpectedTss"`
	TSS             float64              `json:"Tss"`
	ExpectedKJ      float64              `json:"ExpectedKj"`
	KJ              float64              `json:"Kj"`
	IntensityFactor float64              `json:"IntensityFactor"`
	IsCutShort      bool                 `json:"IsCutShort"`
	HasGPS          bool                 `json:"HasGps"`
	IsIndoorSwim    bool                 `json:"IsIndoorSwim"`
	IsExternal      bool                 `json:"IsExternal"`
	CanEstimateTSS  bool                 `json:"CanEstimateTss"`
	SurveyNote      string               `json:"SurveyNote"`
	Progression     *upstreamProgression `json:"Progression"`
	Started         flexTime             `json:"Started"`
	Processed       flexTime             `json:"Processed"`
}

func (a upstreamActivity) normalize() Activity {
	return Activity{
		ID:              a.ID,
		GUID:            a.GUID,
		Name:            strings.TrimSpace(a.Name),
		DurationSeconds: int(a.Duration),
		ExpectedTSS:     a.ExpectedTSS,
		ActualTSS:       a.TSS,
		ExpectedKJ:      a.ExpectedKJ,
		ActualKJ:        a.KJ,
		IntensityFactor: a.IntensityFactor,
		CutShort:        a.IsCutShort,
		HasGPS:          a.HasGPS,
		IsIndoorSwim:    a.IsIndoorSwim,
		IsExternal:      a.IsExternal,
		CanEstimateTSS:  a.CanEstimateTSS,
		SurveyNote:      a.SurveyNote,
		Progression:     a.Progression.normalize(),
		StartedAt:       a.Started.Time,
		ProcessedAt:     a.Processed.Time,
	}
}

// upstreamWorkout is a catalog or workout-information record as the platform sends it
type upstreamWorkout struct {
	ID              int64                `json:"Id"`
	Name            string               `json:"Name"`
	Description     string               `json:"Description"`
	GoalDescription string               `json:"GoalDescription"`
	Duration        float64              `json:"Duration"`
	TSS             float64              `json:"Tss"`
	KJ              float64              `json:"Kj"`
	IntensityFactor float64              `json:"IntensityFactor"`
	Progression     *upstreamProgression `json:"Progression"`
}

func (w upstreamWorkout) normalize() WorkoutTemplate {
	return WorkoutTemplate{
		ID:              w.ID,
		Name:            strings.TrimSpace(w.Name),
		DescriptionHTML: w.Description,
		GoalHTML:        w.GoalDescription,
		DurationMinutes: int(w.Duration),
		TSS:             w.TSS,
		KJ:              w.KJ,
		IntensityFactor: w.IntensityFactor,
		Progression:     w.Progression.normalize(),
	}
}

// flexTime decodes the timestamp formats seen from the platform:
// RFC 3339, ISO without zone (taken as UTC) and the legacy "/Date(ms)/" form
type flexTime struct {
	time.Time
}

var legacyDate = regexp.MustCompile(`^/Date\((-?\d+)([+-]\d{4})?\)/$`)

var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *flexTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp is not a string: %w", err)
	}
	parsed, err := parseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if m := legacyDate.FindStringSubmatch(s); m != nil {
		ms, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid legacy timestamp %q: %w", s, err)
		}
		return time.UnixMilli(ms).UTC(), nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return parsed, nil
	}
	for _, layout := range zonelessLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
