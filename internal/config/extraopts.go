package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultExtraOptsFile is read when --extra-opts names no file.
const DefaultExtraOptsFile = "/etc/nagios/davprobe.yml"

// ExtraOpts resolves a Nagios style --extra-opts value ("section", "@file",
// "section@file" or empty) against a YAML file whose top-level keys are
// sections mapping long flag names to values. defSection is used when the
// value names no section.
func ExtraOpts(arg, defSection string) (map[string]string, error) {
	section, file := defSection, DefaultExtraOptsFile
	if i := strings.LastIndex(arg, "@"); i >= 0 {
		if s := arg[:i]; s != "" {
			section = s
		}
		if f := arg[i+1:]; f != "" {
			file = f
		}
	} else if arg != "" {
		section = arg
	}

	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("extra-opts: read %s: %w", file, err)
	}

	var doc map[string]map[string]any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("extra-opts: parse %s: %w", file, err)
	}
	raw, ok := doc[section]
	if !ok {
		return nil, fmt.Errorf("extra-opts: section %q not found in %s", section, file)
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			return nil, errors.New("extra-opts: empty value for " + k)
		}
		out[k] = fmt.Sprint(v)
	}
	return out, nil
}
