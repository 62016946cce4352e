package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Kind selects which collection the second probe looks at.
type Kind string

const (
	KindCalDAV  Kind = "caldav"
	KindCardDAV Kind = "carddav"
)

// Target is one server/account pair watched by the long-running mode.
type Target struct {
	Name     string        `yaml:"name"`
	Kind     Kind          `yaml:"kind"`
	Server   string        `yaml:"server"`
	User     string        `yaml:"user"`
	Password string        `yaml:"pass"`
	Dir      string        `yaml:"dir,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
	Insecure bool          `yaml:"insecure,omitempty"`
}

// Probe converts the target into the settings a single check run uses.
func (t Target) Probe(def time.Duration) Probe {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = def
	}
	return Probe{
		Server:             t.Server,
		User:               t.User,
		Password:           t.Password,
		Dir:                optional(t.Dir),
		Timeout:            timeout,
		InsecureSkipVerify: t.Insecure,
	}
}

type Watch struct {
	Addr            string        `yaml:"addr"`
	Interval        time.Duration `yaml:"interval"`
	Concurrency     int           `yaml:"concurrency"`
	Cooldown        time.Duration `yaml:"cooldown"`
	AlertOnRecovery bool          `yaml:"alert_on_recovery"`
	SlackWebhook    string        `yaml:"slack_webhook"`
	Targets         []Target      `yaml:"targets"`
}

// LoadWatch reads the watch file at path. Unset fields fall back to cfg.
func LoadWatch(path string, cfg Config) (*Watch, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read watch file: %w", err)
	}
	w := &Watch{
		Addr:         cfg.WatchAddr,
		Interval:     cfg.WatchInterval,
		Concurrency:  cfg.Concurrency,
		Cooldown:     cfg.Cooldown,
		SlackWebhook: cfg.SlackWebhook,
	}
	if err := yaml.Unmarshal(b, w); err != nil {
		return nil, fmt.Errorf("parse watch file: %w", err)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Watch) Validate() error {
	if len(w.Targets) == 0 {
		return errors.New("watch: no targets configured")
	}
	seen := make(map[string]bool, len(w.Targets))
	for i := range w.Targets {
		t := &w.Targets[i]
		if t.Kind == "" {
			t.Kind = KindCalDAV
		}
		if t.Kind != KindCalDAV && t.Kind != KindCardDAV {
			return fmt.Errorf("watch: target %q: unknown kind %q", t.Name, t.Kind)
		}
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("watch: target #%d has no name", i)
		}
		if seen[t.Name] {
			return fmt.Errorf("watch: duplicate target name %q", t.Name)
		}
		seen[t.Name] = true
		if t.Server == "" || t.User == "" {
			return fmt.Errorf("watch: target %q needs server and user", t.Name)
		}
	}
	if w.Concurrency < 1 {
		w.Concurrency = 1
	}
	return nil
}
