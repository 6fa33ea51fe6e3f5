package cfg

import (
	"testing"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("POSTGRES_USER", "app")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "reconciliation")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("MINIO_ENDPOINT", "")

	c, err := Load(logger.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "8080", c.Http.Port)
	assert.Equal(t, 72*time.Hour, c.Redis.ProcessedEventTTL)
	assert.Equal(t, 30*time.Minute, c.Redis.CheckoutTTL)
	assert.False(t, c.Kafka.Enabled)
	assert.False(t, c.Minio.Enabled)
	assert.Equal(t, int64(1500), c.Promotion.DeliveryFee)
	assert.Equal(t, int64(15), c.Promotion.DiscountPercent)
	assert.Equal(t, 2, c.Promotion.MinPriorOrders)
	assert.Equal(t, "Europe/Paris", c.Reconciliation.Location.String())
	assert.Equal(t, 500, c.Reconciliation.DedupeBatchSize)
	assert.Equal(t, 10*time.Second, c.Reconciliation.DelistTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("PROMO_DELIVERY_FEE", "9,90")
	t.Setenv("BUSINESS_TIMEZONE", "UTC")

	_, err := Load(logger.NewNop())
	assert.ErrorIs(t, err, e.ErrIncorrectEnvVariable)

	t.Setenv("PROMO_DELIVERY_FEE", "9.90")
	c, err := Load(logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "sales-ledger", c.Kafka.Topic)
	assert.Equal(t, int64(990), c.Promotion.DeliveryFee)
	assert.Equal(t, time.UTC, c.Reconciliation.Location)
}

func TestLoad_MissingDatabase(t *testing.T) {
	t.Setenv("POSTGRES_USER", "")
	_, err := Load(logger.NewNop())
	assert.Error(t, err)
}
