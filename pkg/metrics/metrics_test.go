package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSetRoleClearsOthers(t *testing.T) {
	r := NewRegistry()

	r.SetRole("leader")
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Role.WithLabelValues("leader")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.Role.WithLabelValues("follower")))

	r.SetRole("follower")
	assert.Equal(t, 0.0, testutil.ToFloat64(r.Role.WithLabelValues("leader")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Role.WithLabelValues("follower")))
}

func TestDefaultRegistryIsSingleton(t *testing.T) {
	assert.Same(t, DefaultRegistry(), DefaultRegistry())
}

func TestHandlerServesMetrics(t *testing.T) {
	r := NewRegistry()
	r.NodesTotal.Set(3)
	r.ElectionsTotal.WithLabelValues("won").Inc()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.Contains(t, body, "voicemesh_cluster_nodes_total 3")
	assert.Contains(t, body, `voicemesh_cluster_elections_total{result="won"} 1`)
}
