package metric

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestSetExposesCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewSet(reg)
	s.ImageLookup("hit")
	s.ImageLookup("hit")
	s.ImageTransferred()
	s.MenuLoad("meals", "ok")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	assert.Contains(t, body, `menu_image_lookups_total{result="hit"} 2`)
	assert.Contains(t, body, "menu_image_transfers_total 1")
	assert.Contains(t, body, `menu_loads_total{result="ok",what="meals"} 1`)
	assert.False(t, strings.Contains(body, "menu_image_errors_total{"))
}

func TestNopSet(t *testing.T) {
	var unset *Set
	for _, s := range []*Set{NopSet(), unset} {
		assert.NotPanics(t, func() {
			s.ImageLookup("hit")
			s.ImageTransferred()
			s.ImageError("invalid_data")
			s.MenuLoad("categories", "ok")
		})
	}
}
