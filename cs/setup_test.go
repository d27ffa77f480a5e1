package cs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mitchellh/go-homedir"
)

// isolateHome points the home directory at a temp dir so no real log file is touched
func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	prev := homedir.DisableCache
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = prev })
	return home
}

func TestSetupDependencies_InvalidConfigOpensNoLogFile(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing local user", func(c *Config) { c.LocalUser = "" }, "local_user"},
		{"unknown store driver", func(c *Config) { c.StoreDriver = "redis" }, "unknown store driver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			home := isolateHome(t)
			config, _ := newTestConfig(t, "right")
			config.JSONMode = false
			tt.mutate(&config)

			// Act
			app, err := setupDependencies(context.Background(), config, "test")

			// Assert
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("setupDependencies() error = %v, want it to mention %q", err, tt.wantErr)
			}
			if app != nil {
				t.Error("setupDependencies() returned an app on error")
			}
			if _, statErr := os.Stat(filepath.Join(home, ".coachsync", "coachsync.log")); !os.IsNotExist(statErr) {
				t.Errorf("log file exists after a config error (stat err = %v)", statErr)
			}
		})
	}
}
