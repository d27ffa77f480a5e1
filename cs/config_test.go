package cs

import (
	"strings"
	"testing"
)

func TestConfig_ValidateStore(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{"sqlite", Config{StoreDriver: DriverSQLite, SQLitePath: "~/.coachsync/sessions.db"}, ""},
		{"sqlite without path", Config{StoreDriver: DriverSQLite}, "store.sqlite_path"},
		{"postgres", Config{StoreDriver: DriverPostgres, PostgresURL: "postgres://localhost/coachsync"}, ""},
		{"postgres without url", Config{StoreDriver: DriverPostgres}, "store.postgres_url"},
		{"unknown driver", Config{StoreDriver: "redis"}, "unknown store driver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.validateStore()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("validateStore() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("validateStore() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateCredentials(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		wantErr  bool
	}{
		{"both set", "rider@example.com", "secret", false},
		{"missing password", "rider@example.com", "", true},
		{"missing username", "", "secret", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Config{Username: tt.username, Password: tt.password}.validateCredentials()
			if (err != nil) != tt.wantErr {
				t.Errorf("validateCredentials() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
