package cli

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/guildsight/guildsight/internal/events"
	"github.com/guildsight/guildsight/internal/store"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from --data-dir flag,
// GUILDSIGHT_DATA_DIR env var, or ~/.guildsight as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("GUILDSIGHT_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return home + "/.guildsight"
}

// openControlStore opens the SQLite credential store in the data directory.
func openControlStore() (*store.Store, error) {
	return store.NewStore(resolveDataDir())
}

// openEventsStore connects to the events database. The driver and DSN
// come from flags, config, or GUILDSIGHT_EVENTS_* env vars; the default
// is a sqlite file next to the credential store.
func openEventsStore() (*events.Store, error) {
	driver := viper.GetString("events.driver")
	dsn := viper.GetString("events.dsn")
	if driver == "" {
		driver = "sqlite"
	}
	if driver == "sqlite" && dsn == "" {
		dsn = resolveDataDir() + "/events.db"
	}

	ev, err := events.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	// The collector owns the schema on Postgres; sqlite backends are
	// local and get their tables created here.
	if driver == "sqlite" {
		if err := ev.Migrate(); err != nil {
			ev.Close()
			return nil, err
		}
	}
	return ev, nil
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
