package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"transit_editor/internal/editor"
)

var _ editor.Metrics = (*Collector)(nil)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(w.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	return string(body)
}

func TestCollectorCounts(t *testing.T) {
	c := NewCollector()
	c.DirectionsRequested()
	c.DirectionsRequested()
	c.DirectionsFailed()
	c.StaleResponseDiscarded()
	c.PersistenceFailed("create_stop")
	c.ReferencesDropped(3)

	out := scrape(t, c)
	for _, want := range []string{
		"editor_directions_requests_total 2",
		"editor_directions_errors_total 1",
		"editor_directions_stale_total 1",
		`editor_persistence_errors_total{op="create_stop"} 1`,
		"editor_dropped_stop_references_total 3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
