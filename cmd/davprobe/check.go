package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/hamed0406/davprobe/internal/check"
	"github.com/hamed0406/davprobe/internal/config"
)

type checkFlags struct {
	server    string
	user      string
	pass      string
	dir       string
	timeout   time.Duration
	insecure  bool
	extraOpts string
}

func newCheckCmd(kind config.Kind, short string) *cobra.Command {
	f := &checkFlags{}
	cmd := &cobra.Command{
		Use:     string(kind) + " -s SERVER -u USER -p PASS [-d DIR]",
		Aliases: []string{"check_" + string(kind)},
		Short:   short,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := runCheck(cmd, kind, f)
			if err != nil {
				res = check.Result{Status: check.Unknown, Message: err.Error()}
			}
			if line := res.Line(); line != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), line)
			}
			exitCode = res.ExitCode()
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&f.server, "server", "s", env.Probe.Server, "server address, host[:port] or https://host[:port]")
	fs.StringVarP(&f.user, "user", "u", env.Probe.User, "user name")
	fs.StringVarP(&f.pass, "pass", "p", "", "password (default $DAV_PASS)")
	fs.StringVarP(&f.dir, "dir", "d", env.Probe.Dir.OrElse(""), "base path of the DAV service, e.g. /iRony")
	fs.DurationVarP(&f.timeout, "timeout", "t", env.Probe.Timeout, "timeout per request")
	fs.BoolVar(&f.insecure, "insecure", env.Probe.InsecureSkipVerify, "do not verify the server certificate")
	fs.StringVar(&f.extraOpts, "extra-opts", "", "read options from [section][@file] (YAML)")
	fs.Lookup("extra-opts").NoOptDefVal = "@"
	return cmd
}

func runCheck(cmd *cobra.Command, kind config.Kind, f *checkFlags) (check.Result, error) {
	fs := cmd.Flags()
	if fs.Changed("extra-opts") {
		if err := applyExtraOpts(fs, f.extraOpts, "check_"+string(kind)); err != nil {
			return check.Result{}, err
		}
	}
	if f.pass == "" {
		f.pass = env.Probe.Password
	}
	var missing []string
	for _, o := range []struct{ name, v string }{{"server", f.server}, {"user", f.user}, {"pass", f.pass}} {
		if strings.TrimSpace(o.v) == "" {
			missing = append(missing, "--"+o.name)
		}
	}
	if len(missing) > 0 {
		return check.Result{}, fmt.Errorf("missing required options: %s", strings.Join(missing, ", "))
	}

	log, err := newLogger(true)
	if err != nil {
		return check.Result{}, err
	}
	defer func() { _ = log.Sync() }()

	d, err := check.NewDriver(kind, log)
	if err != nil {
		return check.Result{}, err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res := d.Run(ctx, config.Probe{
		Server:             f.server,
		User:               f.user,
		Password:           f.pass,
		Dir:                config.OptionalDir(f.dir),
		Timeout:            f.timeout,
		InsecureSkipVerify: f.insecure,
	})
	log.Info("check_result",
		zap.String("kind", string(kind)),
		zap.String("server", f.server),
		zap.Stringer("status", res.Status),
		zap.String("message", res.Message),
	)
	return res, nil
}

// applyExtraOpts sets every option found in the extra-opts section that was
// not given explicitly on the command line.
func applyExtraOpts(fs *pflag.FlagSet, arg, section string) error {
	opts, err := config.ExtraOpts(arg, section)
	if err != nil {
		return err
	}
	for name, v := range opts {
		fl := fs.Lookup(name)
		if fl == nil || name == "extra-opts" {
			return fmt.Errorf("extra-opts: unknown option %q", name)
		}
		if fl.Changed {
			continue
		}
		if err := fs.Set(name, v); err != nil {
			return fmt.Errorf("extra-opts: %s: %w", name, err)
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(
		newCheckCmd(config.KindCalDAV, "Check DAV authentication and the user's calendar home"),
		newCheckCmd(config.KindCardDAV, "Check DAV authentication and the user's address book home"),
	)
}
