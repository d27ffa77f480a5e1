package cs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roessland/coachsync/bridge"
	"github.com/roessland/coachsync/pkg/output"
	"github.com/roessland/coachsync/trainerroad"
)

// PresentationService handles all presentation logic
type PresentationService struct {
	ol *output.OutputLogger
}

// NewPresentationService creates a new presentation service
func NewPresentationService(ol *output.OutputLogger) *PresentationService {
	return &PresentationService{ol: ol}
}

// ShowProgress displays a progress message
func (ps *PresentationService) ShowProgress(msg string, args ...any) {
	ps.ol.Progress(msg, args...)
}

// ShowStatus displays a status message
func (ps *PresentationService) ShowStatus(msg string, args ...any) {
	ps.ol.Status(msg, args...)
}

// ShowError logs err and shows the user-facing message of an integration
// failure, or msg for anything else
func (ps *PresentationService) ShowError(err error, msg string, args ...any) {
	var ie *bridge.IntegrationError
	if errors.As(err, &ie) {
		hint := ie.Message
		if ie.RetryAfter > 0 {
			hint = fmt.Sprintf("%s (retry in %s)", hint, ie.RetryAfter.Round(time.Second))
		}
		ps.ol.LogAndShowError(err, "%s: %s", fmt.Sprintf(msg, args...), hint)
		return
	}
	ps.ol.LogAndShowError(err, msg, args...)
}

// ShowConnection displays the connection state
func (ps *PresentationService) ShowConnection(status bridge.Status) {
	if ps.ol.JSONMode() {
		_ = ps.ol.JSON(map[string]any{
			"authenticated": status == bridge.StatusConnected,
			"state":         status.String(),
		})
		return
	}
	switch status {
	case bridge.StatusConnected:
		ps.ol.Status("Connected to TrainerRoad")
	case bridge.StatusStale:
		ps.ol.Warning("Saved TrainerRoad session no longer works, run connect again")
	default:
		ps.ol.Warning("Not connected to TrainerRoad, run connect first")
	}
}

// ShowActivities renders activities as a table, or as JSON
func (ps *PresentationService) ShowActivities(activities []trainerroad.Activity) error {
	if ps.ol.JSONMode() {
		return ps.ol.JSON(map[string]any{"activities": activities})
	}
	if len(activities) == 0 {
		ps.ol.Result("No activities found")
		return nil
	}

	rows := make([][]string, 0, len(activities))
	for _, a := range activities {
		rows = append(rows, []string{
			formatDate(a.StartedAt),
			a.Name,
			formatSeconds(a.DurationSeconds),
			formatFloat(a.ActualTSS),
			formatFloat(a.IntensityFactor),
			progressionName(a.Progression),
		})
	}
	if err := ps.ol.Table([]string{"Date", "Name", "Duration", "TSS", "IF", "Progression"}, rows); err != nil {
		return err
	}
	ps.ol.Result("%d activities", len(activities))
	return nil
}

// ShowCatalog renders one catalog page
func (ps *PresentationService) ShowCatalog(page trainerroad.CatalogPage) error {
	if ps.ol.JSONMode() {
		return ps.ol.JSON(page)
	}
	if err := ps.showWorkoutTable(page.Items); err != nil {
		return err
	}
	ps.ol.Result("Page %d, %d of %d workouts", page.PageNumber, len(page.Items), page.TotalCount)
	return nil
}

// ShowWorkouts renders detailed workout information
func (ps *PresentationService) ShowWorkouts(workouts []trainerroad.WorkoutTemplate) error {
	if ps.ol.JSONMode() {
		return ps.ol.JSON(map[string]any{"workouts": workouts})
	}
	if err := ps.showWorkoutTable(workouts); err != nil {
		return err
	}
	ps.ol.Result("%d workouts", len(workouts))
	return nil
}

func (ps *PresentationService) showWorkoutTable(workouts []trainerroad.WorkoutTemplate) error {
	rows := make([][]string, 0, len(workouts))
	for _, w := range workouts {
		rows = append(rows, []string{
			strconv.FormatInt(w.ID, 10),
			w.Name,
			formatSeconds(w.DurationMinutes * 60),
			formatFloat(w.TSS),
			formatFloat(w.IntensityFactor),
			progressionName(w.Progression),
		})
	}
	return ps.ol.Table([]string{"ID", "Name", "Duration", "TSS", "IF", "Progression"}, rows)
}

// ShowToken prints a bearer token
func (ps *PresentationService) ShowToken(token string, expires time.Time) error {
	if ps.ol.JSONMode() {
		return ps.ol.JSON(map[string]any{"token": token, "expiresAt": expires})
	}
	ps.ol.Status("Token valid until %s", expires.Format(time.RFC3339))
	fmt.Println(token)
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

func formatSeconds(seconds int) string {
	if seconds <= 0 {
		return "-"
	}
	d := time.Duration(seconds) * time.Second
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh%02dm", h, m)
}

func formatFloat(v float64) string {
	if v == 0 {
		return "-"
	}
	return strings.TrimRight(strings.TrimRight(strconv.FormatFloat(v, 'f', 2, 64), "0"), ".")
}

func progressionName(p *trainerroad.Progression) string {
	if p == nil {
		return "-"
	}
	if p.Level == 0 {
		return p.Name
	}
	return fmt.Sprintf("%s %s", p.Name, formatFloat(p.Level))
}
