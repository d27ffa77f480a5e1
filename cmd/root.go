package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/roessland/coachsync/cs"
	"github.com/roessland/coachsync/trainerroad"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile  string
	jsonMode bool
)

var rootCmd = &cobra.Command{
	Use:   "coachsync",
	Short: "Bridge a TrainerRoad account into a coaching workspace",
	Long: `Coachsync signs in to TrainerRoad on your behalf, keeps the session cookies
and reads completed workouts and the workout catalog with them.

Your password is only used to log in and is never stored.`,
	SilenceUsage: true,
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Log in to TrainerRoad and store the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cs.Connect(cmd.Context(), loadConfig())
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the stored session still works",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cs.Status(cmd.Context(), loadConfig())
	},
}

var signOutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cs.SignOut(cmd.Context(), loadConfig())
	},
}

var activitiesCmd = &cobra.Command{
	Use:   "activities",
	Short: "List completed workouts",
	Long: `List the most recent completed workouts, or those in a date range when
--since or --until is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		since, _ := cmd.Flags().GetString("since")
		until, _ := cmd.Flags().GetString("until")
		return cs.Activities(cmd.Context(), loadConfig(), cs.ActivitiesOptions{
			Limit:    limit,
			SinceStr: since,
			UntilStr: until,
		})
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog [search]",
	Short: "Search the workout catalog",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pageSize, _ := cmd.Flags().GetInt("page-size")
		page, _ := cmd.Flags().GetInt("page")
		search := ""
		if len(args) == 1 {
			search = args[0]
		}
		return cs.Catalog(cmd.Context(), loadConfig(), cs.CatalogOptions{
			PageSize:   pageSize,
			PageNumber: page,
			Search:     search,
		})
	},
}

var workoutsCmd = &cobra.Command{
	Use:   "workouts ID [ID...]",
	Short: "Show detailed information for catalog workouts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		return cs.Workouts(cmd.Context(), loadConfig(), ids)
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the local HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ttl, _ := cmd.Flags().GetDuration("ttl")
		return cs.Token(loadConfig(), ttl)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the integration as a JSON HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cs.Serve(cmd.Context(), loadConfig())
	},
}

// loadConfig gathers configuration from flags, environment and the config file
func loadConfig() cs.Config {
	platform := trainerroad.Config{
		BaseURL:       viper.GetString("base_url"),
		LoginPath:     viper.GetString("login_path"),
		MarkerCookie:  viper.GetString("marker_cookie"),
		IdentityField: viper.GetString("identity_field"),
		SecretField:   viper.GetString("secret_field"),
		TokenField:    viper.GetString("token_field"),
		RememberField: viper.GetString("remember_field"),
		UserAgent:     viper.GetString("user_agent"),
		Timeout:       viper.GetDuration("request_timeout"),
		Endpoints: trainerroad.Endpoints{
			Activities:         viper.GetString("endpoints.activities"),
			RecentActivities:   viper.GetString("endpoints.recent_activities"),
			WorkoutCatalog:     viper.GetString("endpoints.workout_catalog"),
			WorkoutInformation: viper.GetString("endpoints.workout_information"),
			Probe:              viper.GetString("endpoints.probe"),
		},
	}

	return cs.Config{
		Platform:     platform,
		StoreDriver:  viper.GetString("store.driver"),
		SQLitePath:   viper.GetString("store.sqlite_path"),
		PostgresURL:  viper.GetString("store.postgres_url"),
		SealKey:      viper.GetString("store.seal_key"),
		LocalUser:    viper.GetString("local_user"),
		NotifyEmail:  viper.GetString("notify_email"),
		ResendAPIKey: viper.GetString("email.resend_api_key"),
		EmailFrom:    viper.GetString("email.from"),
		HTTPAddress:  viper.GetString("http.address"),
		JWTSecret:    viper.GetString("jwt.secret"),
		JWTIssuer:    viper.GetString("jwt.issuer"),
		Username:     viper.GetString("username"),
		Password:     viper.GetString("password"),
		JSONMode:     jsonMode,
	}
}

// parseIDs parses workout ids given as separate or comma separated arguments
func parseIDs(args []string) ([]int64, error) {
	var ids []int64
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid workout id %q", part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Viper defaults
	defaults := trainerroad.DefaultConfig()
	viper.SetDefault("base_url", defaults.BaseURL)
	viper.SetDefault("login_path", defaults.LoginPath)
	viper.SetDefault("marker_cookie", defaults.MarkerCookie)
	viper.SetDefault("identity_field", defaults.IdentityField)
	viper.SetDefault("secret_field", defaults.SecretField)
	viper.SetDefault("token_field", defaults.TokenField)
	viper.SetDefault("remember_field", defaults.RememberField)
	viper.SetDefault("user_agent", defaults.UserAgent)
	viper.SetDefault("request_timeout", defaults.Timeout)
	viper.SetDefault("endpoints.activities", defaults.Endpoints.Activities)
	viper.SetDefault("endpoints.recent_activities", defaults.Endpoints.RecentActivities)
	viper.SetDefault("endpoints.workout_catalog", defaults.Endpoints.WorkoutCatalog)
	viper.SetDefault("endpoints.workout_information", defaults.Endpoints.WorkoutInformation)
	viper.SetDefault("endpoints.probe", defaults.Endpoints.Probe)
	viper.SetDefault("store.driver", cs.DriverSQLite)
	viper.SetDefault("store.sqlite_path", "~/.coachsync/sessions.db")
	viper.SetDefault("store.postgres_url", "")
	viper.SetDefault("store.seal_key", "")
	viper.SetDefault("local_user", "local")
	viper.SetDefault("notify_email", "")
	viper.SetDefault("email.resend_api_key", "")
	viper.SetDefault("email.from", "")
	viper.SetDefault("http.address", "127.0.0.1:8087")
	viper.SetDefault("jwt.secret", "")
	viper.SetDefault("jwt.issuer", "coachsync")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.coachsync/coachsync.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonMode, "json", false, "Output structured JSON instead of interactive mode")
	rootCmd.PersistentFlags().String("base-url", "", "TrainerRoad base URL")
	rootCmd.PersistentFlags().String("store-driver", "", "Session store driver: sqlite or postgres")
	viper.BindPFlag("base_url", rootCmd.PersistentFlags().Lookup("base-url"))
	viper.BindPFlag("store.driver", rootCmd.PersistentFlags().Lookup("store-driver"))

	connectCmd.Flags().String("username", "", "TrainerRoad username or email")
	viper.BindPFlag("username", connectCmd.Flags().Lookup("username"))

	activitiesCmd.Flags().Int("limit", 20, "Number of recent activities to list (at most 50)")
	activitiesCmd.Flags().String("since", "", "List activities since this date (e.g., '2025-05-01', '30d', '4w')")
	activitiesCmd.Flags().String("until", "", "List activities until this date (default today)")

	catalogCmd.Flags().Int("page-size", 20, "Workouts per page (at most 100)")
	catalogCmd.Flags().Int("page", 1, "Page number, starting at 1")

	tokenCmd.Flags().Duration("ttl", 0, "Token lifetime (default 24h)")

	serveCmd.Flags().String("address", "", "Listen address (default 127.0.0.1:8087)")
	viper.BindPFlag("http.address", serveCmd.Flags().Lookup("address"))

	// Bind environment variables
	for _, key := range []string{
		"base_url", "login_path", "marker_cookie", "identity_field", "secret_field",
		"token_field", "remember_field", "user_agent", "request_timeout",
		"store.driver", "store.sqlite_path", "store.postgres_url", "store.seal_key",
		"local_user", "notify_email", "email.resend_api_key", "email.from",
		"http.address", "jwt.secret", "jwt.issuer", "username", "password",
	} {
		viper.BindEnv(key, "COACHSYNC_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}

	rootCmd.AddCommand(connectCmd, statusCmd, signOutCmd, activitiesCmd, catalogCmd, workoutsCmd, tokenCmd, serveCmd)
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in ~/.coachsync/ directory with name "coachsync" (without extension).
		viper.AddConfigPath(filepath.Join(home, ".coachsync"))
		viper.SetConfigName("coachsync")
		viper.SetConfigType("yaml")
	}

	// If a config file is found, read it in silently (logging is via LOG_LEVEL env var)
	viper.ReadInConfig()
}
