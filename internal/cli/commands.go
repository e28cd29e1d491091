package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/serwidlick/backstage/internal/prefs"
	"github.com/serwidlick/backstage/internal/tui"
	"github.com/serwidlick/backstage/web"
)

// Status command flags
var statusJSON bool

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show console status",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := apiClient(cmd)

	status, err := client.GetStatus()
	if err != nil {
		return fmt.Errorf("%v\nIs a console running? Try 'backstage demo' first", err)
	}

	if statusJSON {
		return json.NewEncoder(os.Stdout).Encode(status)
	}

	fmt.Printf("Enabled:     %t\n", status.Enabled)
	fmt.Printf("Paused:      %t\n", status.Paused)
	fmt.Printf("Entries:     %d/%d\n", status.Entries, status.Capacity)
	fmt.Printf("Subscribers: %d\n", status.Subscribers)
	fmt.Printf("Uptime:      %s\n", formatDuration(time.Duration(status.UptimeSeconds)*time.Second))
	fmt.Printf("Gate:        %s\n", status.Gate.State)
	return nil
}

// Logs command flags
var (
	logsMinLevel string
	logsTag      string
	logsQuery    string
	logsRegex    bool
	logsCase     bool
	logsSince    string
	logsUntil    string
	logsLimit    int
	logsOffset   int
	logsFollow   bool
	logsJSON     bool
)

// logsCmd represents the logs command
var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Query or follow captured log entries",
	Long: `Query the console's entry store, or follow the live stream.

Examples:
  backstage logs                          # Latest 100 entries
  backstage logs --min-level warn         # Warnings and errors only
  backstage logs --tag net -q timeout     # Filtered text search
  backstage logs -f                       # Follow the live stream`,
	RunE: runLogs,
}

func runLogs(cmd *cobra.Command, args []string) error {
	client := apiClient(cmd)
	printer := NewLogPrinter(os.Stdout, resolvePlain(cmd, loadPrefs()))

	params := QueryParams{
		MinLevel:      logsMinLevel,
		Tag:           logsTag,
		Query:         logsQuery,
		Regex:         logsRegex,
		CaseSensitive: logsCase,
		Since:         logsSince,
		Until:         logsUntil,
		Limit:         logsLimit,
		Offset:        logsOffset,
	}

	if logsFollow {
		return client.StreamLogs(context.Background(), params, func(entry web.EntryResponse) {
			if logsJSON {
				if err := json.NewEncoder(os.Stdout).Encode(entry); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to encode log entry: %v\n", err)
				}
			} else {
				printer.PrintEntry(entry)
			}
		})
	}

	logs, err := client.GetLogs(params)
	if err != nil {
		return err
	}

	if logsJSON {
		return json.NewEncoder(os.Stdout).Encode(logs)
	}

	// The API pages newest-first; flip so the terminal reads
	// chronologically like tail
	for i := len(logs.Entries) - 1; i >= 0; i-- {
		printer.PrintEntry(logs.Entries[i])
	}
	if len(logs.Entries) < logs.TotalCount {
		fmt.Printf("\n(showing %d of %d entries)\n", len(logs.Entries), logs.TotalCount)
	}
	return nil
}

// enableCmd represents the enable command
var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable the console",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiClient(cmd).SetEnabled(true); err != nil {
			return err
		}
		fmt.Println("Console enabled")
		return nil
	},
}

// disableCmd represents the disable command
var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable the console",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiClient(cmd).SetEnabled(false); err != nil {
			return err
		}
		fmt.Println("Console disabled")
		return nil
	},
}

// clearCmd represents the clear command
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the entry store",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiClient(cmd).Clear(); err != nil {
			return err
		}
		fmt.Println("Log store cleared")
		return nil
	},
}

// tailCmd represents the tail command
var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Interactive live view of the log stream",
	RunE:  runTail,
}

func runTail(cmd *cobra.Command, args []string) error {
	client := apiClient(cmd)

	// Verify the console is reachable before taking over the terminal
	if _, err := client.GetStatus(); err != nil {
		return fmt.Errorf("%v\nIs a console running? Try 'backstage demo' first", err)
	}

	return tui.Run(client)
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")

	logsCmd.Flags().StringVar(&logsMinLevel, "min-level", "", "Minimum level (debug, info, warn, error)")
	logsCmd.Flags().StringVar(&logsTag, "tag", "", "Exact tag match")
	logsCmd.Flags().StringVarP(&logsQuery, "query", "q", "", "Text search")
	logsCmd.Flags().BoolVar(&logsRegex, "regex", false, "Treat the query as a regular expression")
	logsCmd.Flags().BoolVar(&logsCase, "case", false, "Case-sensitive text search")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Entries at or after this RFC3339 time")
	logsCmd.Flags().StringVar(&logsUntil, "until", "", "Entries before this RFC3339 time")
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "n", 0, "Maximum entries to return")
	logsCmd.Flags().IntVar(&logsOffset, "offset", 0, "Entries to skip from the newest")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow the live stream")
	logsCmd.Flags().BoolVar(&logsJSON, "json", false, "Output as JSON")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(tailCmd)
}

// loadPrefs reads the CLI preferences file once per invocation
func loadPrefs() prefs.Prefs {
	return prefs.Load("")
}

// formatDuration formats a duration nicely
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
