package probe

import (
	"context"

	"github.com/hamed0406/davprobe/internal/config"
	"github.com/hamed0406/davprobe/internal/davconn"
)

// CheckResult is the outcome of a single prober run.
//
// Fields:
//   - StatusCode: last HTTP status seen; 0 when no response arrived.
//   - Err: the *domain.ProbeError that made the check fail, nil on success.
type CheckResult struct {
	Name       string  `json:"name"`
	Success    bool    `json:"success"`
	Message    string  `json:"message"`
	StatusCode int     `json:"status_code,omitempty"`
	LatencyMS  float64 `json:"latency_ms,omitempty"`
	Err        error   `json:"-"`
}

// Checker runs one probe against the server described by cfg.
type Checker interface {
	Check(ctx context.Context, cfg config.Probe) CheckResult
}

// Dialer opens the connection a checker owns for the length of one Check.
type Dialer func(ctx context.Context, address string, o davconn.Options) (*davconn.Conn, error)

func dial(ctx context.Context, d Dialer, cfg config.Probe) (*davconn.Conn, error) {
	if d == nil {
		d = davconn.Dial
	}
	return d(ctx, cfg.Server, davconn.Options{
		Timeout:            cfg.Timeout,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	})
}
