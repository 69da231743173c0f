package metrics

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the editor counters on a private registry. It implements
// editor.Metrics.
type Collector struct {
	reg *prometheus.Registry

	DirectionsRequests prometheus.Counter
	DirectionsErrors   prometheus.Counter
	StaleResponses     prometheus.Counter
	PersistenceErrors  *prometheus.CounterVec // op label: load|create_stop|update_stop|...
	DroppedReferences  prometheus.Counter
	Requests           *prometheus.CounterVec // editor HTTP requests by handler and status
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		DirectionsRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "editor_directions_requests_total",
			Help: "Directions requests started.",
		}),
		DirectionsErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "editor_directions_errors_total",
			Help: "Directions requests that failed.",
		}),
		StaleResponses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "editor_directions_stale_total",
			Help: "Directions responses discarded because a newer request replaced them.",
		}),
		PersistenceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "editor_persistence_errors_total",
			Help: "Backend calls that failed.",
		}, []string{"op"}),
		DroppedReferences: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "editor_dropped_stop_references_total",
			Help: "Route references to unknown stops dropped while loading.",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "editor_http_requests_total",
			Help: "Editor HTTP requests.",
		}, []string{"handler", "status"}),
	}

	reg.MustRegister(
		c.DirectionsRequests, c.DirectionsErrors, c.StaleResponses,
		c.PersistenceErrors, c.DroppedReferences, c.Requests,
	)
	return c
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

func (c *Collector) DirectionsRequested()    { c.DirectionsRequests.Inc() }
func (c *Collector) DirectionsFailed()       { c.DirectionsErrors.Inc() }
func (c *Collector) StaleResponseDiscarded() { c.StaleResponses.Inc() }

func (c *Collector) PersistenceFailed(op string) {
	c.PersistenceErrors.WithLabelValues(op).Inc()
}

func (c *Collector) ReferencesDropped(n int) {
	c.DroppedReferences.Add(float64(n))
}

// Middleware counts editor HTTP requests by route and status.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Next()
		path := ctx.FullPath()
		if path == "" {
			path = "unmatched"
		}
		c.Requests.WithLabelValues(path, strconv.Itoa(ctx.Writer.Status())).Inc()
	}
}
