package check

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamed0406/davprobe/internal/config"
	"github.com/hamed0406/davprobe/internal/probe"
)

// fake checker you can control
type fakeChecker struct {
	ok    bool
	calls int
}

func (f *fakeChecker) Check(ctx context.Context, cfg config.Probe) probe.CheckResult {
	f.calls++
	return probe.CheckResult{Name: "fake", Success: f.ok, LatencyMS: 2}
}

func TestDriver_Scenarios(t *testing.T) {
	tests := []struct {
		name       string
		authOK     bool
		collOK     bool
		wantStatus Status
		wantLine   string
		wantExit   int
		wantColl   int
	}{
		{"auth fails", false, true, Critical, "FATAL: HTTP Auth", 2, 0},
		{"calendar fails", true, false, Warning, "WARNING: PROPFIND to user calendars failed", 1, 1},
		{"both pass", true, true, OK, "", 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &fakeChecker{ok: tt.authOK}
			coll := &fakeChecker{ok: tt.collOK}
			d := &Driver{Auth: auth, Collection: coll, WarnMessage: "PROPFIND to user calendars failed"}

			res := d.Run(context.Background(), config.Probe{})
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Equal(t, tt.wantLine, res.Line())
			assert.Equal(t, tt.wantExit, res.ExitCode())
			assert.Equal(t, 1, auth.calls)
			assert.Equal(t, tt.wantColl, coll.calls)
			assert.Len(t, res.Checks, 1+tt.wantColl)
		})
	}
}

func TestNewDriver_Kinds(t *testing.T) {
	d, err := NewDriver(config.KindCardDAV, nil)
	require.NoError(t, err)
	assert.Equal(t, "PROPFIND to user addressbooks failed", d.WarnMessage)

	d, err = NewDriver(config.KindCalDAV, nil)
	require.NoError(t, err)
	assert.Equal(t, "PROPFIND to user calendars failed", d.WarnMessage)

	_, err = NewDriver("webdav", nil)
	assert.Error(t, err)

	res := Suite{}.Run(context.Background(), "webdav", config.Probe{})
	assert.Equal(t, Unknown, res.Status)
	assert.Equal(t, 3, res.ExitCode())
	assert.Contains(t, res.Line(), "UNKNOWN: ")
}

func TestSuite_RunsAgainstServer(t *testing.T) {
	// a server that never challenges: auth must be critical
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("DAV", "1")
		w.WriteHeader(http.StatusMultiStatus)
		_, _ = w.Write([]byte("<d:multistatus/>"))
	}))
	defer ts.Close()

	res := Suite{}.Run(context.Background(), config.KindCalDAV, config.Probe{
		Server: ts.URL, User: "jane", Password: "x", Timeout: time.Second,
	})
	assert.Equal(t, Critical, res.Status)
	assert.Equal(t, "FATAL: HTTP Auth", res.Line())
	require.Len(t, res.Checks, 1)
	assert.Equal(t, 207, res.Checks[0].StatusCode)
}
