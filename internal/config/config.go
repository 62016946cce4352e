package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"
)

// Probe is everything a single check run needs to reach the DAV server.
type Probe struct {
	Server             string            // "dav.example.com", "host:8080" or "https://dav.example.com"
	User               string            // login, also used to build /calendars/<user>/
	Password           string            // Basic auth password
	Dir                mo.Option[string] // base path the DAV root is mounted under, e.g. "/iRony"
	Timeout            time.Duration     // per request and per resolution
	InsecureSkipVerify bool              // skip TLS verification (lab setups only)
}

type Config struct {
	Probe         Probe
	LogDir        string // empty means no log file
	LogLevel      string // debug|info|warn|error
	WatchFile     string // YAML file with watch targets
	WatchAddr     string // HTTP listen address for watch mode
	WatchInterval time.Duration
	Concurrency   int
	Cooldown      time.Duration
	SlackWebhook  string
	AdminAPIKeys  []string
	PublicAPIKeys []string
}

const DefaultTimeout = 10 * time.Second

func FromEnv() Config {
	p := Probe{
		Server:   strings.TrimSpace(os.Getenv("DAV_SERVER")),
		User:     os.Getenv("DAV_USER"),
		Password: os.Getenv("DAV_PASS"),
		Dir:      optional(os.Getenv("DAV_DIR")),
		Timeout:  millis("DAV_TIMEOUT_MS", DefaultTimeout),
	}
	if v, err := strconv.ParseBool(os.Getenv("DAV_INSECURE")); err == nil {
		p.InsecureSkipVerify = v
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "warn"
	}

	addr := os.Getenv("WATCH_ADDR")
	if addr == "" {
		addr = "127.0.0.1:8080"
	}

	concurrency := 4
	if v := os.Getenv("MAX_CONCURRENT_CHECKS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			concurrency = n
		}
	}

	return Config{
		Probe:         p,
		LogDir:        os.Getenv("LOG_DIR"),
		LogLevel:      logLevel,
		WatchFile:     os.Getenv("WATCH_FILE"),
		WatchAddr:     addr,
		WatchInterval: millis("WATCH_INTERVAL_MS", 5*time.Minute),
		Concurrency:   concurrency,
		Cooldown:      millis("ALERT_COOLDOWN_MS", 30*time.Minute),
		SlackWebhook:  os.Getenv("SLACK_WEBHOOK"),
		AdminAPIKeys:  splitList(os.Getenv("ADMIN_API_KEYS")),
		PublicAPIKeys: splitList(os.Getenv("PUBLIC_API_KEYS")),
	}
}

// optional treats an empty or whitespace-only value as "not configured".
func optional(v string) mo.Option[string] {
	v = strings.TrimSpace(v)
	if v == "" {
		return mo.None[string]()
	}
	return mo.Some(v)
}

// OptionalDir is the exported form of optional, for callers building a Probe by hand.
func OptionalDir(v string) mo.Option[string] { return optional(v) }

func millis(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms < 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
