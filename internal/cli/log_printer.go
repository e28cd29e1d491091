package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/serwidlick/backstage/web"
)

// ANSI color codes for terminal output
const (
	colorReset  = "\033[0m"
	colorDim    = "\033[90m"
	colorCyan   = "\033[36m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
)

// levelColor maps a level name to its terminal color
func levelColor(level string) string {
	switch level {
	case "debug":
		return colorDim
	case "info":
		return colorCyan
	case "warn":
		return colorYellow
	case "error":
		return colorRed
	default:
		return ""
	}
}

// LogPrinter handles consistent log entry formatting
type LogPrinter struct {
	out   io.Writer
	plain bool
}

// NewLogPrinter creates a printer writing to out. Plain mode disables
// ANSI colors for pipes and dumb terminals.
func NewLogPrinter(out io.Writer, plain bool) *LogPrinter {
	return &LogPrinter{out: out, plain: plain}
}

// PrintEntry prints a single API log entry
func (lp *LogPrinter) PrintEntry(entry web.EntryResponse) {
	ts, err := time.Parse(time.RFC3339Nano, entry.Timestamp)
	if err != nil {
		ts = time.Now()
	}

	level := strings.ToUpper(entry.Level)
	if lp.plain {
		fmt.Fprintf(lp.out, "%s %-5s %-10s | %s\n",
			ts.Format("15:04:05.000"), level, entry.Tag, entry.Message)
	} else {
		color := levelColor(entry.Level)
		fmt.Fprintf(lp.out, "%s%s%s %s%-5s%s %-10s | %s\n",
			colorDim, ts.Format("15:04:05.000"), colorReset,
			color, level, colorReset,
			entry.Tag, entry.Message)
	}

	if entry.Stack != "" {
		for _, line := range strings.Split(strings.TrimRight(entry.Stack, "\n"), "\n") {
			if lp.plain {
				fmt.Fprintf(lp.out, "    %s\n", line)
			} else {
				fmt.Fprintf(lp.out, "    %s%s%s\n", colorDim, line, colorReset)
			}
		}
	}
}
