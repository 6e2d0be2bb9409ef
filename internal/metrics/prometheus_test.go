package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveBuildDuration("html", 150*time.Millisecond)
	pr.IncBuildOutcome("html", OutcomeSuccess)
	pr.IncArticlesRendered("html")
	pr.IncArticlesRendered("html")
	pr.IncRenderError("invalid reference")
	pr.IncRebuild("modified")

	if got := testutil.ToFloat64(pr.articlesRendered.WithLabelValues("html")); got != 2 {
		t.Errorf("articles rendered = %v, want 2", got)
	}
	if got := testutil.ToFloat64(pr.renderErrors.WithLabelValues("invalid reference")); got != 1 {
		t.Errorf("render errors = %v, want 1", got)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) != 5 {
		t.Errorf("got %d metric families, want 5", len(mfs))
	}
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncRebuild("created")

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `zendown_rebuilds_total{trigger="created"} 1`) {
		t.Errorf("body missing rebuild counter:\n%s", rec.Body.String())
	}
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncRenderError("x")
	r.ObserveBuildDuration("html", time.Second)
}
