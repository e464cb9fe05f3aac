package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/guildsight/guildsight/internal/server"
)

const banner = `
  ___      _ _    _ ___ _      _   _
 / __|_  _(_) |__| / __(_)__ _| |_| |_
| (_ | || | | / _` + "`" + ` \__ \ / _` + "`" + ` | ' \  _|
 \___|\_,_|_|_\__,_|___/_\__, |_||_\__|
                         |___/
`

func newServeCmd() *cobra.Command {
	var (
		port         int
		host         string
		dev          bool
		eventsDriver string
		eventsDSN    string
		rateLimit    int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the analytics API server",
		Long:  "Start the HTTP server that exposes the credential-gated community analytics API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port, dev, rateLimit)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")
	cmd.Flags().StringVar(&eventsDriver, "events-driver", "", "Events database driver: postgres or sqlite")
	cmd.Flags().StringVar(&eventsDSN, "events-dsn", "", "Events database DSN")
	cmd.Flags().IntVar(&rateLimit, "rate-limit", 120, "Requests allowed per client per minute")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	viper.BindPFlag("events.driver", cmd.Flags().Lookup("events-driver"))
	viper.BindPFlag("events.dsn", cmd.Flags().Lookup("events-dsn"))

	return cmd
}

func runServe(host string, port int, dev bool, rateLimit int) error {
	fmt.Print(banner)
	fmt.Println()

	logLevel := slog.LevelInfo
	if dev {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	// 1. Open the credential store.
	control, err := openControlStore()
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}
	defer control.Close()
	logger.Info("credential store initialized", "path", resolveDataDir())

	// 2. First run: issue the bootstrap admin credential and print its
	// secret. This happens at most once per database.
	ctx := context.Background()
	cred, secret, err := control.EnsureBootstrapAdmin(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if cred != nil {
		printBootstrapSecret(cred.ID, secret)
	}

	// 3. Connect the events database the collector writes to.
	ev, err := openEventsStore()
	if err != nil {
		return fmt.Errorf("open events database: %w", err)
	}
	defer ev.Close()
	logger.Info("events database connected", "driver", viper.GetString("events.driver"))

	// 4. Build and start the HTTP server.
	srvCfg := server.DefaultConfig()
	srvCfg.Host = host
	srvCfg.Port = port
	srvCfg.RateLimit = rateLimit
	srvCfg.RateLimitWindow = time.Minute
	srvCfg.Version = versionString()

	srv := server.New(srvCfg, control, ev, logger)

	fmt.Printf("→ GuildSight %s\n", versionString())
	fmt.Printf("→ Listening on http://%s:%d\n", host, port)
	fmt.Printf("→ Health:  http://%s:%d/healthz\n", host, port)
	fmt.Printf("→ API:     http://%s:%d/api/v1\n", host, port)
	fmt.Println()

	return srv.ListenAndServe()
}

// printBootstrapSecret shows the one-time bootstrap admin secret. When
// stdout is a terminal the output is framed so the secret is hard to
// miss; when piped, only the secret is printed so scripts can capture it.
func printBootstrapSecret(id, secret string) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Println(secret)
		return
	}
	fmt.Println("=========================================================================")
	fmt.Println(" First run: bootstrap admin credential created.")
	fmt.Println()
	fmt.Printf("   ID:     %s\n", id)
	fmt.Printf("   Secret: %s\n", secret)
	fmt.Println()
	fmt.Println(" Save this secret now - it is shown once and cannot be retrieved again.")
	fmt.Println("=========================================================================")
	fmt.Println()
}
