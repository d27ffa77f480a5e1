package trainerroad

import (
	"time"
)

const (
	defaultBaseURL = "https://www.trainerroad.com"

	// DefaultTimeout is the budget applied to every single upstream call
	DefaultTimeout = 30 * time.Second
)

// Endpoints holds the paths of the internal JSON endpoints
type Endpoints struct {
	Activities         string
	RecentActivities   string
	WorkoutCatalog     string
	WorkoutInformation string
	// Probe is the lightweight authenticated call used to verify a session
	Probe string
}

// Config describes how to talk to the platform. The upstream field names are
// not a published contract, so all of them are configuration.
type Config struct {
	BaseURL       string
	LoginPath     string
	MarkerCookie  string
	IdentityField string
	SecretField   string
	TokenField    string
	RememberField string
	UserAgent     string
	Timeout       time.Duration
	Endpoints     Endpoints
}

// DefaultConfig returns the configuration matching the live site at the time of writing
func DefaultConfig() Config {
	return Config{
		BaseURL:       defaultBaseURL,
		LoginPath:     "/app/login",
		MarkerCookie:  "TrainerRoadAuth",
		IdentityField: "Username",
		SecretField:   "Password",
		TokenField:    "__RequestVerificationToken",
		RememberField: "RememberMe",
		UserAgent:     "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/137.0.0.0 Safari/537.36",
		Timeout:       DefaultTimeout,
		Endpoints: Endpoints{
			Activities:         "/app/api/activities",
			RecentActivities:   "/app/api/activities/recent",
			WorkoutCatalog:     "/app/api/workouts/search",
			WorkoutInformation: "/app/api/workout-information",
			Probe:              "/app/api/activities/recent",
		},
	}
}

// withDefaults fills every empty field from DefaultConfig
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&c.BaseURL, d.BaseURL)
	fill(&c.LoginPath, d.LoginPath)
	fill(&c.MarkerCookie, d.MarkerCookie)
	fill(&c.IdentityField, d.IdentityField)
	fill(&c.SecretField, d.SecretField)
	fill(&c.TokenField, d.TokenField)
	fill(&c.RememberField, d.RememberField)
	fill(&c.UserAgent, d.UserAgent)
	fill(&c.Endpoints.Activities, d.Endpoints.Activities)
	fill(&c.Endpoints.RecentActivities, d.Endpoints.RecentActivities)
	fill(&c.Endpoints.WorkoutCatalog, d.Endpoints.WorkoutCatalog)
	fill(&c.Endpoints.WorkoutInformation, d.Endpoints.WorkoutInformation)
	fill(&c.Endpoints.Probe, d.Endpoints.Probe)
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	return c
}
