package prometheus

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/authcore-dev/authcore"
)

type fakeSource struct {
	snapshot authcore.MetricsSnapshot
	dropped  uint64
}

func (s *fakeSource) MetricsSnapshot() authcore.MetricsSnapshot { return s.snapshot }
func (s *fakeSource) AuditDropped() uint64                      { return s.dropped }

func TestRender(t *testing.T) {
	source := &fakeSource{
		snapshot: authcore.MetricsSnapshot{
			Counters: map[authcore.MetricID]uint64{
				authcore.MetricLoginSuccess: 7,
				authcore.MetricLoginFailure: 3,
			},
		},
		dropped: 2,
	}

	out := NewFromSource(source).Render()

	for _, want := range []string{
		"# HELP authcore_login_success_total Successful logins.\n",
		"# TYPE authcore_login_success_total counter\n",
		"authcore_login_success_total 7\n",
		"authcore_login_failure_total 3\n",
		"authcore_audit_dropped_total 2\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}

	// Counters never observed still appear, at zero.
	if !strings.Contains(out, "authcore_register_success_total 0\n") {
		t.Fatalf("zero-valued counter missing:\n%s", out)
	}
}

func TestRenderCoversEveryCounter(t *testing.T) {
	out := NewFromSource(&fakeSource{}).Render()

	for _, def := range authcore.MetricDefs() {
		if !strings.Contains(out, "# TYPE "+def.Name+" counter\n") {
			t.Fatalf("counter %s missing from exposition", def.Name)
		}
	}
}

func TestHandler(t *testing.T) {
	source := &fakeSource{
		snapshot: authcore.MetricsSnapshot{
			Counters: map[authcore.MetricID]uint64{
				authcore.MetricRateLimited: 1,
			},
		},
	}

	rec := httptest.NewRecorder()
	NewFromSource(source).Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "text/plain; version=0.0.4; charset=utf-8" {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "authcore_rate_limited_total 1\n") {
		t.Fatalf("body missing counter:\n%s", rec.Body.String())
	}
}

func TestRenderNilSafety(t *testing.T) {
	var e *Exporter
	if e.Render() != "" {
		t.Fatal("nil exporter must render empty")
	}
	if NewFromSource(nil).Render() != "" {
		t.Fatal("nil source must render empty")
	}
}
