package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.WebhookLine("pos", "processed")
	m.WebhookLine("pos", "processed")
	m.WebhookLine("marketplace", "duplicate")
	m.SalesAppended("boutique", 3)
	m.SalesDeleted("dedupe", 2)
	m.Delist("marketplace", "failed")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.webhookLines.WithLabelValues("pos", "processed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.webhookLines.WithLabelValues("marketplace", "duplicate")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.salesAppended.WithLabelValues("boutique")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.salesDeleted.WithLabelValues("dedupe")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.delists.WithLabelValues("marketplace", "failed")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.SalesAppended("storefront", 1)
	m.ObserveHTTP("POST", "/webhooks/pos", 200, 15*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `reconciliation_sales_appended_total{origin="storefront"} 1`)
	assert.Contains(t, string(body), `reconciliation_http_request_duration_seconds_count{method="POST",route="/webhooks/pos",status="200"} 1`)
}
