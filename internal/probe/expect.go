package probe

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/davprobe/internal/davconn"
	"github.com/hamed0406/davprobe/internal/domain"
)

// expectation is what a PROPFIND response must look like for a step to pass.
type expectation struct {
	status int
	header string // must be present with a non-empty value
	body   string // must occur in the body, case-sensitive; empty skips the check
}

func (e expectation) verify(op string, resp *davconn.Response) error {
	if resp.StatusCode != e.status {
		return &domain.ProbeError{Kind: domain.UnexpectedStatus, Op: op, StatusCode: resp.StatusCode, Detail: strconv.Itoa(e.status)}
	}
	if resp.Header.Get(e.header) == "" {
		return &domain.ProbeError{Kind: domain.MissingHeader, Op: op, Detail: e.header}
	}
	if e.body != "" && !bytes.Contains(resp.Body, []byte(e.body)) {
		return &domain.ProbeError{Kind: domain.BodyMismatch, Op: op, Detail: fmt.Sprintf("no %q in body", e.body)}
	}
	return nil
}

func elapsedMS(start time.Time) float64 {
	return time.Since(start).Seconds() * 1000
}

// failed logs err and turns it into a failed result. Transport level
// problems are warnings, plain check failures only show up at info level.
func failed(log *zap.Logger, res CheckResult, start time.Time, err error) CheckResult {
	res.Success = false
	res.Err = err
	res.Message = err.Error()
	res.LatencyMS = elapsedMS(start)

	fields := []zap.Field{
		zap.String("check", res.Name),
		zap.Stringer("kind", domain.KindOf(err)),
		zap.Int("status", res.StatusCode),
		zap.Error(err),
	}
	switch domain.KindOf(err) {
	case domain.ConnectionError, domain.TransportException, domain.KindUnknown:
		log.Warn("probe_transport_error", fields...)
	default:
		log.Info("probe_failed", fields...)
	}
	return res
}
