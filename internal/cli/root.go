package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/serwidlick/backstage/internal/prefs"
	"github.com/serwidlick/backstage/web"
)

// Version is set during build
var Version = "dev"

// DefaultServerAddr is where a locally running console is expected
const DefaultServerAddr = "http://" + web.DefaultAddr

// Global flags
var (
	configPath  string
	serverAddr  string
	authToken   string
	plainOutput bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "backstage",
	Short: "An embeddable in-app debug console",
	Long: `backstage captures an application's log output, errors, panics,
and HTTP traffic into a bounded in-memory store and serves it over a
local HTTP API. The CLI talks to that API:
  - Query and stream captured entries
  - Interactive TUI with live tail and filtering
  - Enable or disable the console remotely
  - Run a self-contained demo console`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("backstage version %s\n", Version)
	},
}

func init() {
	// Persistent flags available to all subcommands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: auto-discover backstage.yml)")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", DefaultServerAddr, "Console API address")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "Bearer token for the console API")
	rootCmd.PersistentFlags().BoolVar(&plainOutput, "plain", false, "Disable colored output")

	// Set version template
	rootCmd.SetVersionTemplate("backstage version {{.Version}}\n")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// resolveAddr picks the console address. Priority:
// 1. --addr flag (when explicitly set)
// 2. BACKSTAGE_ADDR environment variable
// 3. Preferences file (~/.backstage/cli.toml)
// 4. Default local address
func resolveAddr(cmd *cobra.Command, p prefs.Prefs) string {
	if cmd.Flags().Changed("addr") {
		return serverAddr
	}
	if v := os.Getenv("BACKSTAGE_ADDR"); v != "" {
		return v
	}
	if p.Addr != "" {
		return p.Addr
	}
	return DefaultServerAddr
}

// resolveToken picks the bearer token with the same priority as
// resolveAddr. An empty result means no authentication.
func resolveToken(p prefs.Prefs) string {
	if authToken != "" {
		return authToken
	}
	if v := os.Getenv("BACKSTAGE_TOKEN"); v != "" {
		return v
	}
	return p.Token
}

// resolvePlain decides whether to emit ANSI colors
func resolvePlain(cmd *cobra.Command, p prefs.Prefs) bool {
	if cmd.Flags().Changed("plain") {
		return plainOutput
	}
	if v := os.Getenv("BACKSTAGE_PLAIN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return p.Plain
}

// apiClient builds a client for remote commands from flags,
// environment, and preferences
func apiClient(cmd *cobra.Command) *Client {
	p := prefs.Load("")
	return NewClient(resolveAddr(cmd, p), resolveToken(p))
}
