package probe

import (
	"encoding/base64"
	"strings"

	"github.com/hamed0406/davprobe/internal/config"
)

// AbsPath prefixes p with the configured base directory, if any.
func AbsPath(p string, cfg config.Probe) string {
	base := strings.TrimRight(cfg.Dir.OrElse(""), "/")
	return base + p
}

// BasicAuth renders the Authorization header value for user and pass.
func BasicAuth(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

// PathEscape percent-encodes s for use inside a URL path. Unreserved
// characters and "/" are kept; everything else, "@" included, is encoded,
// so "jane@example.com" becomes "jane%40example.com".
func PathEscape(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if keep(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&15])
	}
	return b.String()
}

func keep(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-._~/", c) >= 0
}
