package probe

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/davprobe/internal/config"
	"github.com/hamed0406/davprobe/internal/davxml"
)

// CollectionChecker lists the user's home collection below Root
// ("calendars" or "addressbooks") with an authenticated PROPFIND.
type CollectionChecker struct {
	Name   string
	Root   string
	Logger *zap.Logger
	Dial   Dialer
}

func NewCalendarChecker(logger *zap.Logger) *CollectionChecker {
	return &CollectionChecker{Name: "Calendars", Root: "calendars", Logger: logger}
}

func NewAddressBookChecker(logger *zap.Logger) *CollectionChecker {
	return &CollectionChecker{Name: "Address books", Root: "addressbooks", Logger: logger}
}

var expectListing = expectation{status: http.StatusMultiStatus, header: "DAV", body: "<d:multistatus"}

// HomePath is the path of the user's collection home, base directory included.
func (c *CollectionChecker) HomePath(cfg config.Probe) string {
	return AbsPath("/"+c.Root+"/"+PathEscape(cfg.User)+"/", cfg)
}

func (c *CollectionChecker) Check(ctx context.Context, cfg config.Probe) CheckResult {
	start := time.Now()
	res := CheckResult{Name: c.Name}
	log := zap.NewNop()
	if c.Logger != nil {
		log = c.Logger
	}

	conn, err := dial(ctx, c.Dial, cfg)
	if err != nil {
		return failed(log, res, start, err)
	}
	defer conn.Close()

	path := c.HomePath(cfg)
	hdr := http.Header{}
	hdr.Set("Content-Type", "text/xml")
	hdr.Set("Authorization", BasicAuth(cfg.User, cfg.Password))

	resp, err := conn.Propfind(ctx, path, davxml.CollectionProps, hdr)
	if err != nil {
		return failed(log, res, start, err)
	}
	res.StatusCode = resp.StatusCode
	if err := expectListing.verify("propfind "+path, resp); err != nil {
		return failed(log, res, start, err)
	}

	res.Success = true
	res.LatencyMS = elapsedMS(start)
	res.Message = "multistatus received"

	// The listing only adds detail to the message; a body the parser
	// rejects still passed the checks above.
	resources, err := davxml.ParseMultistatus(resp.Body)
	if err != nil {
		log.Debug("probe_listing_unparsed", zap.String("check", c.Name), zap.Error(err))
		return res
	}
	var names []string
	for _, r := range resources {
		if r.DisplayName != "" {
			names = append(names, r.DisplayName)
		}
	}
	res.Message = fmt.Sprintf("%d resources", len(resources))
	if len(names) > 0 {
		res.Message += ": " + strings.Join(names, ", ")
	}
	log.Debug("probe_ok",
		zap.String("check", c.Name),
		zap.String("path", path),
		zap.Int("resources", len(resources)),
		zap.Strings("names", names),
		zap.Float64("latency_ms", res.LatencyMS),
	)
	return res
}
