package main

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hamed0406/davprobe/internal/config"
)

var preflightCmd = &cobra.Command{
	Use:   "preflight -c FILE",
	Short: "Validate a watch file and the environment before deploying it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return preflight(cmd.OutOrStdout(), cmd.ErrOrStderr(), watchFile, env)
	},
}

func init() {
	preflightCmd.Flags().StringVarP(&watchFile, "config", "c", env.WatchFile, "watch file (YAML)")
	rootCmd.AddCommand(preflightCmd)
}

var errPreflight = errors.New("preflight failed")

func preflight(stdout, stderr io.Writer, file string, cfg config.Config) error {
	failed := false
	fail := func(msg string) {
		fmt.Fprintln(stderr, "✖", msg)
		failed = true
	}
	warn := func(msg string) { fmt.Fprintln(stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Fprintln(stdout, "✔", msg) }

	if file == "" {
		fail("no watch file given (--config or WATCH_FILE).")
		return errPreflight
	}
	w, err := config.LoadWatch(file, cfg)
	if err != nil {
		fail(err.Error())
		return errPreflight
	}
	ok(fmt.Sprintf("%s: %d targets", file, len(w.Targets)))

	for _, t := range w.Targets {
		if t.Password == "" {
			warn(t.Name + ": no password; the authenticated PROPFIND will fail.")
		}
		if !strings.HasPrefix(t.Server, "https") {
			warn(t.Name + ": plain HTTP, credentials are sent in clear text.")
		}
		if t.Insecure {
			warn(t.Name + ": certificate verification disabled.")
		}
	}

	if w.Interval <= 0 {
		warn("interval is 0; targets will only be checked on demand.")
	} else {
		ok("interval=" + w.Interval.String())
	}

	if w.SlackWebhook == "" {
		warn("no slack_webhook; alerts only go to the log.")
	} else {
		ok("slack webhook present")
	}

	public := !isLoopback(w.Addr)
	switch {
	case len(cfg.AdminAPIKeys) == 0 && public:
		fail("ADMIN_API_KEYS is empty and " + w.Addr + " is not a loopback address (anyone could trigger checks).")
	case len(cfg.AdminAPIKeys) == 0:
		warn("ADMIN_API_KEYS is empty; admin routes are open on " + w.Addr + ".")
	default:
		ok("addr=" + w.Addr)
	}
	for name, keys := range map[string][]string{"ADMIN_API_KEYS": cfg.AdminAPIKeys, "PUBLIC_API_KEYS": cfg.PublicAPIKeys} {
		for _, k := range keys {
			if len(k) < 16 {
				warn(name + " contains a key shorter than 16 characters.")
				break
			}
		}
	}

	if failed {
		return errPreflight
	}
	ok("preflight passed")
	return nil
}

func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
