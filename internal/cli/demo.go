package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/serwidlick/backstage"
	"github.com/serwidlick/backstage/config"
	"github.com/serwidlick/backstage/persist"
	"github.com/serwidlick/backstage/sink/postgres"
	"github.com/serwidlick/backstage/sink/sqlite"
	"github.com/serwidlick/backstage/web"
)

// Demo command flags
var (
	demoListen  string
	demoEnabled bool
	demoEnvFile string
)

// demoCmd represents the demo command
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a self-contained console with a synthetic workload",
	Long: `demo builds a full console the way a host application would: it
loads configuration, installs the capture adapters, opens any
configured persistence sinks, and serves the HTTP API. A background
workload emits log entries, guarded panics, and outbound HTTP traffic
so there is something to look at.

Examples:
  backstage demo                    # Defaults, console enabled
  backstage demo -c backstage.yml   # With a config file
  backstage tail                    # In another terminal`,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().StringVar(&demoListen, "listen", "", "Override the web listen address")
	demoCmd.Flags().BoolVar(&demoEnabled, "enabled", true, "Start with the console enabled (overrides config)")
	demoCmd.Flags().StringVar(&demoEnvFile, "env-file", "", "Load this .env file before reading the config")
	rootCmd.AddCommand(demoCmd)
}

// loadDemoConfig resolves the config file: the --config flag, then
// auto-discovery, then built-in defaults when nothing is found. An
// --env-file lands in the process environment so ${VAR} references in
// the config see it; a file named by the config itself still wins.
func loadDemoConfig() (*config.Config, error) {
	if demoEnvFile != "" {
		if err := godotenv.Load(demoEnvFile); err != nil {
			return nil, fmt.Errorf("loading env file: %w", err)
		}
	}
	if configPath != "" {
		return config.Load(configPath)
	}
	path, err := config.FindConfigFile()
	if errors.Is(err, config.ErrConfigNotFound) {
		return config.Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg, err := loadDemoConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	opts := cfg.Options()
	opts.DefaultEnabled = demoEnabled
	// The workload sends requests through the capture transport, so the
	// net entries should actually show up
	opts.Capture.Network = true

	// Open configured sinks; the console owns their pumps from here
	if path, sqOpts, ok := cfg.SQLiteSink(); ok {
		sq, err := sqlite.Open(path, sqOpts)
		if err != nil {
			return fmt.Errorf("opening sqlite sink: %w", err)
		}
		opts.Sinks = append(opts.Sinks, sq)
	}
	if dsn, ok := cfg.PostgresDSN(); ok {
		pgCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pg, err := postgres.Open(pgCtx, dsn)
		cancel()
		if err != nil {
			return fmt.Errorf("opening postgres sink: %w", err)
		}
		opts.Sinks = append(opts.Sinks, pg)
	}

	console, err := backstage.New(opts)
	if err != nil {
		return err
	}

	if err := console.Start(context.Background()); err != nil {
		if !errors.Is(err, persist.ErrUnavailable) {
			return err
		}
		// Flag read failures are recoverable; the console runs on its
		// default
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	addr := web.DefaultAddr
	token := ""
	if cfg.Web != nil {
		addr = cfg.Web.Addr
		token = cfg.Web.Token
	}
	if demoListen != "" {
		addr = demoListen
	}
	server := web.NewServer(console, web.Options{Addr: addr, Token: token})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "Web server error: %v\n", err)
		}
	}()

	fmt.Printf("Console API: http://%s\n", server.Addr())
	fmt.Printf("Follow along: backstage tail --addr http://%s\n", server.Addr())
	if !console.Enabled() {
		fmt.Println("Console is disabled; unlock it with five quick taps:")
		fmt.Printf("  for i in 1 2 3 4 5; do curl -s -XPOST http://%s/api/v1/gate/tap; done\n", server.Addr())
	}

	workCtx, stopWorkload := context.WithCancel(context.Background())
	go demoWorkload(workCtx, console, "http://"+server.Addr())

	sig := <-sigCh
	fmt.Printf("\nReceived %s, shutting down...\n", sig)
	stopWorkload()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error stopping web server: %v\n", err)
	}
	if err := console.Close(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error closing console: %v\n", err)
	}

	fmt.Println("Shutdown complete")
	return nil
}

// demoWorkload emits a steady stream of synthetic activity: leveled
// log entries under rotating tags, standard-library log output for the
// print tee, outbound HTTP through the capture transport, and an
// occasional guarded panic.
func demoWorkload(ctx context.Context, console *backstage.Console, baseURL string) {
	logger := console.Logger()
	workerLog := logger.Tagged("worker")
	dbLog := logger.Tagged("db")

	httpClient := &http.Client{
		Transport: console.HTTPTransport(nil),
		Timeout:   5 * time.Second,
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	tick := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		tick++

		switch tick % 5 {
		case 0:
			logger.Debug(fmt.Sprintf("heartbeat %d", tick))
		case 1:
			workerLog.Info(fmt.Sprintf("job %d finished in %dms", tick, 40+tick%200))
		case 2:
			dbLog.Warn("connection pool above 80% utilization")
		case 3:
			workerLog.Error(fmt.Sprintf("job %d failed: upstream timeout", tick))
		case 4:
			log.Printf("background sweep %d complete", tick)
		}

		if tick%3 == 0 {
			resp, err := httpClient.Get(baseURL + "/api/v1/status")
			if err == nil {
				resp.Body.Close()
			}
		}

		if tick%15 == 0 {
			_ = console.RunGuarded(func() error {
				panic(fmt.Sprintf("synthetic panic %d", tick))
			})
		}
	}
}
