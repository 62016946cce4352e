// Command davprobe checks a CalDAV/CardDAV server the way a Nagios plugin
// does, or keeps watching a set of servers and serves their status.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/davprobe/internal/check"
	"github.com/hamed0406/davprobe/internal/config"
	"github.com/hamed0406/davprobe/internal/logging"
)

var (
	env = config.FromEnv()

	logDir   string
	logLevel string
	verbose  bool

	// exitCode is set by the plugin subcommands; cobra errors map to UNKNOWN.
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:           "davprobe",
	Short:         "Health probes for CalDAV/CardDAV servers",
	SilenceUsage:  true,
	SilenceErrors: false,
	Long: `davprobe verifies a CalDAV/CardDAV server by issuing WebDAV PROPFIND
requests: the DAV root must challenge anonymous clients and accept the
configured credentials, and the user's calendar or address book home must
answer with a multistatus listing.

Exit codes follow the Nagios plugin convention: 0 OK, 1 WARNING,
2 CRITICAL, 3 UNKNOWN.`,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logDir, "log-dir", env.LogDir, "directory for the rotating log file (empty disables it)")
	pf.StringVar(&logLevel, "log-level", env.LogLevel, "log level: debug, info, warn or error")
	pf.BoolVarP(&verbose, "verbose", "v", false, "log at debug level to stderr")
}

func newLogger(stderr bool) (*zap.Logger, error) {
	lvl := logLevel
	if verbose {
		lvl, stderr = "debug", true
	}
	return logging.NewLogger(logging.Options{Dir: logDir, Level: lvl, Stderr: stderr})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(int(check.Unknown))
	}
	os.Exit(exitCode)
}
