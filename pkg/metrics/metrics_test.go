package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCounter(t *testing.T) {
	r := New()
	c := r.Counter("ingest_docs_total", "Documents ingested")
	c.Inc()
	c.Add(4)
	if c.Value() != 5 {
		t.Fatalf("value = %d", c.Value())
	}
	if c2 := r.Counter("ingest_docs_total", ""); c2 != c {
		t.Fatal("same name should return the same counter")
	}
}

func TestWithLabels(t *testing.T) {
	if got := WithLabels("hits", "path", "/api"); got != `hits{path="/api"}` {
		t.Fatalf("got %q", got)
	}
	if got := WithLabels("hits", "odd"); got != "hits" {
		t.Fatal("odd label pairs should be ignored")
	}
}

func TestRenderCounterWithLabels(t *testing.T) {
	r := New()
	r.Counter(WithLabels("requests_total", "status", "200"), "Requests").Add(7)
	r.Counter(WithLabels("requests_total", "status", "500"), "").Inc()

	out := r.Render()
	for _, want := range []string{
		"# HELP requests_total Requests",
		"# TYPE requests_total counter",
		`requests_total{status="200"} 7`,
		`requests_total{status="500"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("render missing %q:\n%s", want, out)
		}
	}
}

func TestRenderHistogram(t *testing.T) {
	r := New()
	h := r.Histogram("latency_seconds", "Request latency", []float64{0.1, 1})
	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(5)

	out := r.Render()
	for _, want := range []string{
		"# TYPE latency_seconds histogram",
		`latency_seconds_bucket{le="0.1"} 1`,
		`latency_seconds_bucket{le="1"} 2`,
		`latency_seconds_bucket{le="+Inf"} 3`,
		"latency_seconds_count 3",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("render missing %q:\n%s", want, out)
		}
	}
}

func TestHistogramSince(t *testing.T) {
	r := New()
	h := r.Histogram("elapsed_seconds", "", nil)
	h.Since(time.Now().Add(-10 * time.Millisecond))
	_, _, sum, count := h.snapshot()
	if count != 1 || sum <= 0 {
		t.Fatalf("count=%d sum=%g", count, sum)
	}
}

func TestHandler(t *testing.T) {
	r := New()
	r.Counter("up", "").Inc()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "up 1") {
		t.Fatalf("body = %q", rec.Body.String())
	}
}
