package cs

import (
	"fmt"
	"time"

	"github.com/roessland/coachsync/trainerroad"
)

// Config gathers everything the commands need, read from viper by cmd
type Config struct {
	Platform trainerroad.Config

	StoreDriver  string
	SQLitePath   string
	PostgresURL  string
	SealKey      string
	LocalUser    string
	NotifyEmail  string
	ResendAPIKey string
	EmailFrom    string

	HTTPAddress string
	JWTSecret   string
	JWTIssuer   string

	Username string
	Password string
	JSONMode bool
}

// ActivitiesOptions selects an activity listing
type ActivitiesOptions struct {
	Limit    int
	SinceStr string
	UntilStr string
}

// CatalogOptions selects a catalog page
type CatalogOptions struct {
	PageSize   int
	PageNumber int
	Search     string
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// validateStore checks that the selected driver has what it needs
func (c Config) validateStore() error {
	switch c.StoreDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path must be set for the sqlite driver")
		}
	case DriverPostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("store.postgres_url must be set for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q (use %s or %s)", c.StoreDriver, DriverSQLite, DriverPostgres)
	}
	return nil
}

// validateCredentials checks that username and password are provided
func (c Config) validateCredentials() error {
	if c.Username == "" || c.Password == "" {
		return fmt.Errorf("username and password must be provided via config file, environment variables, or command line flags")
	}
	return nil
}

// tokenTTL is the lifetime of tokens issued by the token command
const tokenTTL = 24 * time.Hour
