package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnv_ParsesAndDefaults(t *testing.T) {
	t.Setenv("DAV_SERVER", " https://dav.example.com ")
	t.Setenv("DAV_USER", "jane")
	t.Setenv("DAV_PASS", "secret")
	t.Setenv("DAV_DIR", "/iRony")
	t.Setenv("DAV_TIMEOUT_MS", "1234")
	t.Setenv("LOG_DIR", "./_testlogs")
	t.Setenv("MAX_CONCURRENT_CHECKS", "7")
	t.Setenv("ADMIN_API_KEYS", "adm_x, adm_y")
	t.Setenv("PUBLIC_API_KEYS", "")

	cfg := FromEnv()

	if cfg.Probe.Server != "https://dav.example.com" || cfg.Probe.User != "jane" || cfg.Probe.Password != "secret" {
		t.Fatalf("probe wrong: %+v", cfg.Probe)
	}
	if dir, ok := cfg.Probe.Dir.Get(); !ok || dir != "/iRony" {
		t.Fatalf("dir wrong: %v %v", dir, ok)
	}
	if cfg.Probe.Timeout != 1234*time.Millisecond {
		t.Fatalf("timeout wrong: %v", cfg.Probe.Timeout)
	}
	if cfg.LogDir != "./_testlogs" || cfg.LogLevel != "warn" {
		t.Fatalf("log settings wrong: %+v", cfg)
	}
	if cfg.Concurrency != 7 {
		t.Fatalf("concurrency wrong: %d", cfg.Concurrency)
	}
	if len(cfg.AdminAPIKeys) != 2 || cfg.AdminAPIKeys[1] != "adm_y" {
		t.Fatalf("admin keys wrong: %+v", cfg.AdminAPIKeys)
	}
	if len(cfg.PublicAPIKeys) != 0 {
		t.Fatalf("public keys should be empty: %+v", cfg.PublicAPIKeys)
	}

	// ensure defaults don't crash if missing env
	os.Unsetenv("DAV_TIMEOUT_MS")
	os.Unsetenv("DAV_DIR")
	cfg = FromEnv()
	if cfg.Probe.Timeout != DefaultTimeout {
		t.Fatalf("want default timeout, got %v", cfg.Probe.Timeout)
	}
	if cfg.Probe.Dir.IsPresent() {
		t.Fatalf("dir should be absent")
	}
}

func TestExtraOpts_SectionAndFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plugins.yml")
	body := `
check_caldav:
  server: dav.example.com
  user: jane
  timeout: 5s
other:
  server: other.example.com
`
	if err := os.WriteFile(file, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	opts, err := ExtraOpts("@"+file, "check_caldav")
	if err != nil {
		t.Fatalf("ExtraOpts: %v", err)
	}
	if opts["server"] != "dav.example.com" || opts["timeout"] != "5s" {
		t.Fatalf("unexpected opts: %+v", opts)
	}

	opts, err = ExtraOpts("other@"+file, "check_caldav")
	if err != nil {
		t.Fatalf("ExtraOpts: %v", err)
	}
	if opts["server"] != "other.example.com" {
		t.Fatalf("unexpected opts: %+v", opts)
	}

	if _, err := ExtraOpts("missing@"+file, "check_caldav"); err == nil {
		t.Fatalf("want error for missing section")
	}
}

func TestLoadWatch_DefaultsAndValidation(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "watch.yml")
	body := `
interval: 1m
targets:
  - name: main
    server: https://dav.example.com
    user: jane
    pass: secret
  - name: contacts
    kind: carddav
    server: dav.example.com:8080
    user: jane
    dir: /iRony
`
	if err := os.WriteFile(file, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	w, err := LoadWatch(file, Config{WatchAddr: ":9000", Concurrency: 0, Cooldown: time.Minute})
	if err != nil {
		t.Fatalf("LoadWatch: %v", err)
	}
	if w.Addr != ":9000" || w.Interval != time.Minute || w.Concurrency != 1 {
		t.Fatalf("unexpected watch: %+v", w)
	}
	if w.Targets[0].Kind != KindCalDAV || w.Targets[1].Kind != KindCardDAV {
		t.Fatalf("kinds wrong: %+v", w.Targets)
	}
	p := w.Targets[1].Probe(3 * time.Second)
	if d, _ := p.Dir.Get(); d != "/iRony" || p.Timeout != 3*time.Second {
		t.Fatalf("probe wrong: %+v", p)
	}
}

func TestWatchValidate_Rejects(t *testing.T) {
	cases := map[string]Watch{
		"empty":     {},
		"bad kind":  {Targets: []Target{{Name: "a", Kind: "ftp", Server: "x", User: "u"}}},
		"no name":   {Targets: []Target{{Server: "x", User: "u"}}},
		"no server": {Targets: []Target{{Name: "a", User: "u"}}},
		"duplicate": {Targets: []Target{{Name: "a", Server: "x", User: "u"}, {Name: "a", Server: "y", User: "u"}}},
	}
	for name, w := range cases {
		w := w
		if err := w.Validate(); err == nil {
			t.Fatalf("%s: want validation error", name)
		}
	}
}
