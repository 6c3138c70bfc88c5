// Package metric counts menu and image activity for Prometheus.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Set holds the counters the menu core reports. The zero Set (and a nil
// *Set) discards everything.
type Set struct {
	imageLookups   *prometheus.CounterVec // result: hit, miss, stale, offline
	imageTransfers prometheus.Counter
	imageErrors    *prometheus.CounterVec // kind: data_unavailable, invalid_data
	menuLoads      *prometheus.CounterVec // what: categories, meals; result: ok, error, cached
}

// NewSet registers the counters on reg.
func NewSet(reg prometheus.Registerer) *Set {
	s := &Set{
		imageLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "menu_image_lookups_total",
			Help: "Image cache lookups by result.",
		}, []string{"result"}),
		imageTransfers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "menu_image_transfers_total",
			Help: "Image blobs downloaded from the object store.",
		}),
		imageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "menu_image_errors_total",
			Help: "Image failures by kind.",
		}, []string{"kind"}),
		menuLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "menu_loads_total",
			Help: "Menu list loads.",
		}, []string{"what", "result"}),
	}
	reg.MustRegister(s.imageLookups, s.imageTransfers, s.imageErrors, s.menuLoads)
	return s
}

// NopSet returns a Set that records nothing.
func NopSet() *Set {
	return &Set{}
}

func (s *Set) ImageLookup(result string) {
	if s != nil && s.imageLookups != nil {
		s.imageLookups.WithLabelValues(result).Inc()
	}
}

func (s *Set) ImageTransferred() {
	if s != nil && s.imageTransfers != nil {
		s.imageTransfers.Inc()
	}
}

func (s *Set) ImageError(kind string) {
	if s != nil && s.imageErrors != nil {
		s.imageErrors.WithLabelValues(kind).Inc()
	}
}

func (s *Set) MenuLoad(what, result string) {
	if s != nil && s.menuLoads != nil {
		s.menuLoads.WithLabelValues(what, result).Inc()
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
