package probe

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/davprobe/internal/config"
	"github.com/hamed0406/davprobe/internal/davxml"
)

// AuthChecker verifies that the DAV root challenges anonymous clients and
// accepts the configured credentials.
type AuthChecker struct {
	Logger *zap.Logger
	Dial   Dialer
}

func NewAuthChecker(logger *zap.Logger) *AuthChecker {
	return &AuthChecker{Logger: logger}
}

var (
	expectChallenge = expectation{status: http.StatusUnauthorized, header: "WWW-Authenticate", body: "<d:error"}
	expectAuthed    = expectation{status: http.StatusMultiStatus, header: "DAV"}
)

func (a *AuthChecker) Check(ctx context.Context, cfg config.Probe) CheckResult {
	start := time.Now()
	res := CheckResult{Name: "HTTP Auth"}
	log := a.logger()

	conn, err := dial(ctx, a.Dial, cfg)
	if err != nil {
		return failed(log, res, start, err)
	}
	defer conn.Close()

	path := AbsPath("/", cfg)
	op := "propfind " + path
	hdr := http.Header{}
	hdr.Set("Content-Type", "text/xml")

	// anonymous request must be challenged
	resp, err := conn.Propfind(ctx, path, davxml.PrincipalCollectionSet, hdr)
	if err != nil {
		return failed(log, res, start, err)
	}
	res.StatusCode = resp.StatusCode
	if err := expectChallenge.verify(op+" (anonymous)", resp); err != nil {
		return failed(log, res, start, err)
	}

	hdr.Set("Authorization", BasicAuth(cfg.User, cfg.Password))
	resp, err = conn.Propfind(ctx, path, davxml.PrincipalCollectionSet, hdr)
	if err != nil {
		return failed(log, res, start, err)
	}
	res.StatusCode = resp.StatusCode
	if err := expectAuthed.verify(op, resp); err != nil {
		return failed(log, res, start, err)
	}

	res.Success = true
	res.Message = "authenticated as " + cfg.User
	res.LatencyMS = elapsedMS(start)
	log.Debug("probe_ok", zap.String("check", res.Name), zap.String("host", conn.Host()), zap.Float64("latency_ms", res.LatencyMS))
	return res
}

func (a *AuthChecker) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}
