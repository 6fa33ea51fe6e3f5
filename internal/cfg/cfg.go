package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/shopspring/decimal"
)

type Config struct {
	Minio          *MinIOCfg
	Http           *HTTPConfig
	Grpc           *GRPCConfig
	Db             *PGDBCfg
	Redis          *RedisCfg
	Kafka          *KafkaCfg
	POS            *POSCfg
	Marketplace    *MarketplaceCfg
	Storefront     *StorefrontCfg
	Promotion      *PromotionCfg
	Reconciliation *ReconciliationCfg
	Telemetry      *TelemetryCfg
}

type KafkaCfg struct {
	Enabled           bool
	Topic             string
	Brokers           []string
	NetworkMode       string
	Partitions        int
	ReplicationFactor int
	OutboxBatchSize   int
	OutboxPollPeriod  time.Duration
}

type MinIOCfg struct {
	Enabled           bool   // архив включён, если задан MINIO_ENDPOINT
	MinioEndpoint     string // Адрес конечной точки Minio
	BucketName        string // Бакет для архива удалённых продаж
	MinioRootUser     string
	MinioRootPassword string
	MinioUseSSL       bool
	MaxRetries        int
}

type HTTPConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxBodyBytes int64
}

type GRPCConfig struct {
	Port        string
	NetworkMode string
}

type PGDBCfg struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	// источник миграций golang-migrate, пусто — file://db/migrations
	MigrationsURL string
}

type RedisCfg struct {
	Addr        string
	Password    string
	User        string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
	// TTL ключей обработанных позиций вебхуков
	ProcessedEventTTL time.Duration
	DepositorTTL      time.Duration
	CheckoutTTL       time.Duration
}

// POSCfg — касса (каталог и остатки).
type POSCfg struct {
	BaseURL       string
	AccessToken   string
	APIVersion    string
	LocationID    string
	WebhookSecret string
	Timeout       time.Duration
	MaxRetries    int
}

type MarketplaceCfg struct {
	BaseURL           string
	AccessToken       string
	WebhookSecret     string
	VerificationToken string
	EndpointURL       string // публичный адрес вебхука, участвует в challenge
	Timeout           time.Duration
	MaxRetries        int
}

type StorefrontCfg struct {
	WebhookSecret string
	CheckoutURL   string
}

// PromotionCfg — суммы в центах.
type PromotionCfg struct {
	DeliveryFee     int64
	DiscountPercent int64
	MinPriorOrders  int
}

type ReconciliationCfg struct {
	Location            *time.Location
	DedupeBatchSize     int
	ImportMaxRows       int
	DispositionAttempts int
	DelistTimeout       time.Duration
	ShutdownTimeout     time.Duration
}

type TelemetryCfg struct {
	ServiceName  string
	Env          string
	OTLPEndpoint string // пусто — трассировка выключена
	OTLPInsecure bool
}

// Load безопасно загружает конфигурацию и возвращает ошибку в случае неудачи.
func Load(log logger.Logger) (*Config, error) {
	db, err := loadPGDBCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	http, err := loadHTTPConfig(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	redis, err := loadRedisCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minio, err := loadMinIOCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	kafka, err := loadKafkaCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	pos, err := loadPOSCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	marketplace, err := loadMarketplaceCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	promotion, err := loadPromotionCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	reconciliation, err := loadReconciliationCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	telemetry, err := loadTelemetryCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &Config{
		Minio:          minio,
		Http:           http,
		Grpc:           loadGRPCConfig(),
		Db:             db,
		Redis:          redis,
		Kafka:          kafka,
		POS:            pos,
		Marketplace:    marketplace,
		Storefront:     loadStorefrontCfg(),
		Promotion:      promotion,
		Reconciliation: reconciliation,
		Telemetry:      telemetry,
	}, nil
}

func loadKafkaCfg() (*KafkaCfg, error) {
	const (
		defaultPartitions        = 3
		defaultReplicationFactor = 1
		defaultNetworkMode       = "tcp"
		defaultTopic             = "sales-ledger"
		defaultBatchSize         = 100
		defaultPollPeriod        = 5 * time.Second
	)

	// без брокеров события остаются в outbox до включения Kafka
	brokerStr := getEnv("KAFKA_BROKERS")
	if brokerStr == "" {
		return &KafkaCfg{Enabled: false}, nil
	}

	var brokers []string
	for _, b := range strings.Split(brokerStr, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	partitions, err := parseIntEnv("KAFKA_PARTITIONS", defaultPartitions)
	if err != nil {
		return nil, e.Wrap("KAFKA_PARTITIONS", err)
	}

	replicationFactor, err := parseIntEnv("REPLICATION_FACTOR", defaultReplicationFactor)
	if err != nil {
		return nil, e.Wrap("REPLICATION_FACTOR", err)
	}

	batchSize, err := parseIntEnv("OUTBOX_BATCH_SIZE", defaultBatchSize)
	if err != nil {
		return nil, e.Wrap("OUTBOX_BATCH_SIZE", err)
	}

	pollPeriod, err := parseDurationEnv("OUTBOX_POLL_PERIOD", defaultPollPeriod)
	if err != nil {
		return nil, e.Wrap("OUTBOX_POLL_PERIOD", err)
	}

	return &KafkaCfg{
		Enabled:           true,
		Brokers:           brokers,
		Topic:             getEnvOrDefault("KAFKA_TOPIC", defaultTopic),
		Partitions:        partitions,
		ReplicationFactor: replicationFactor,
		NetworkMode:       getEnvOrDefault("KAFKA_NETWORK_MODE", defaultNetworkMode),
		OutboxBatchSize:   batchSize,
		OutboxPollPeriod:  pollPeriod,
	}, nil
}

func loadMinIOCfg(log logger.Logger) (*MinIOCfg, error) {
	const (
		defaultUseSSL     = false
		defaultBucket     = "sales-archive"
		defaultMaxRetries = 3
	)

	useSSL, err := parseBoolEnv("MINIO_USE_SSL", defaultUseSSL)
	if err != nil {
		log.Errorf(err, "invalid MINIO_USE_SSL")
		return nil, err
	}

	maxRetries, err := parseIntEnv("MINIO_MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		return nil, e.Wrap("MINIO_MAX_RETRIES", err)
	}

	endpoint := getEnv("MINIO_ENDPOINT")

	return &MinIOCfg{
		Enabled:           endpoint != "",
		MinioEndpoint:     endpoint,
		BucketName:        getEnvOrDefault("BUCKET_NAME", defaultBucket),
		MinioRootUser:     getEnv("MINIO_ROOT_USER"),
		MinioRootPassword: getEnv("MINIO_ROOT_PASSWORD"),
		MinioUseSSL:       useSSL,
		MaxRetries:        maxRetries,
	}, nil
}

func loadHTTPConfig(log logger.Logger) (*HTTPConfig, error) {
	const (
		defaultPort         = "8080"
		defaultReadTimeout  = 5 * time.Second
		defaultWriteTimeout = 10 * time.Second
		defaultIdleTimeout  = 60 * time.Second
		defaultMaxBodyBytes = 5 << 20
	)

	port := getEnvOrDefault("HTTP_PORT", defaultPort)

	readTimeout, err := parseDurationEnv("HTTP_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("HTTP_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_WRITE_TIMEOUT")
		return nil, err
	}

	idleTimeout, err := parseDurationEnv("KEEP_ALIVE", defaultIdleTimeout)
	if err != nil {
		log.Errorf(err, "invalid KEEP_ALIVE")
		return nil, err
	}

	maxBody, err := parseIntEnv("HTTP_MAX_BODY_BYTES", defaultMaxBodyBytes)
	if err != nil {
		log.Errorf(err, "invalid HTTP_MAX_BODY_BYTES")
		return nil, err
	}

	return &HTTPConfig{
		Port:         port,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
		MaxBodyBytes: int64(maxBody),
	}, nil
}

func loadGRPCConfig() *GRPCConfig {
	const (
		defaultPort        = "8091"
		defaultNetworkMode = "tcp"
	)

	return &GRPCConfig{
		Port:        getEnvOrDefault("GRPC_PORT", defaultPort),
		NetworkMode: getEnvOrDefault("GRPC_NETWORK_MODE", defaultNetworkMode),
	}
}

func loadPGDBCfg(log logger.Logger) (*PGDBCfg, error) {
	const (
		defaultHost    = "localhost"
		defaultPort    = "5432"
		defaultSSLMode = "disable"
	)

	user := getEnv("POSTGRES_USER")
	if user == "" {
		err := fmt.Errorf("POSTGRES_USER is required")
		log.Errorf(err, "missing POSTGRES_USER")
		return nil, err
	}

	password := getEnv("POSTGRES_PASSWORD")
	if password == "" {
		err := fmt.Errorf("POSTGRES_PASSWORD is required")
		log.Errorf(err, "missing POSTGRES_PASSWORD")
		return nil, err
	}

	dbName := getEnv("POSTGRES_DB")
	if dbName == "" {
		err := fmt.Errorf("POSTGRES_DB is required")
		log.Errorf(err, "missing POSTGRES_DB")
		return nil, err
	}

	return &PGDBCfg{
		Host:          getEnvOrDefault("POSTGRES_HOST", defaultHost),
		Port:          getEnvOrDefault("POSTGRES_PORT", defaultPort),
		User:          user,
		Password:      password,
		DBName:        dbName,
		SSLMode:       getEnvOrDefault("SSL_MODE", defaultSSLMode),
		MigrationsURL: getEnv("MIGRATIONS_URL"),
	}, nil
}

func loadRedisCfg(log logger.Logger) (*RedisCfg, error) {
	const (
		defaultAddr         = "localhost:6379"
		defaultDB           = 0
		defaultMaxRetries   = 3
		defaultDialTimeout  = 5 * time.Second
		defaultReadTimeout  = 3 * time.Second
		defaultWriteTimeout = 3 * time.Second
		defaultEventTTL     = 72 * time.Hour
		defaultDepositorTTL = 5 * time.Minute
		defaultCheckoutTTL  = 30 * time.Minute
	)

	db, err := parseIntEnv("REDIS_DB_ID", defaultDB)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DB_ID")
		return nil, err
	}

	maxRetries, err := parseIntEnv("MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		log.Errorf(err, "invalid MAX_RETRIES")
		return nil, err
	}

	dialTimeout, err := parseDurationEnv("DIAL_TIMEOUT", defaultDialTimeout)
	if err != nil {
		log.Errorf(err, "invalid DIAL_TIMEOUT")
		return nil, err
	}

	readTimeout, err := parseDurationEnv("READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid WRITE_TIMEOUT")
		return nil, err
	}

	eventTTL, err := parseDurationEnv("PROCESSED_EVENT_TTL", defaultEventTTL)
	if err != nil {
		log.Errorf(err, "invalid PROCESSED_EVENT_TTL")
		return nil, err
	}

	depositorTTL, err := parseDurationEnv("DEPOSITOR_TTL", defaultDepositorTTL)
	if err != nil {
		log.Errorf(err, "invalid DEPOSITOR_TTL")
		return nil, err
	}

	checkoutTTL, err := parseDurationEnv("CHECKOUT_SESSION_TTL", defaultCheckoutTTL)
	if err != nil {
		log.Errorf(err, "invalid CHECKOUT_SESSION_TTL")
		return nil, err
	}

	return &RedisCfg{
		Addr:              getEnvOrDefault("REDIS_ADDR", defaultAddr),
		Password:          getEnv("REDIS_PASSWORD"),
		User:              getEnv("REDIS_USER"),
		DB:                db,
		MaxRetries:        maxRetries,
		DialTimeout:       dialTimeout,
		Timeout:           max(readTimeout, writeTimeout),
		ProcessedEventTTL: eventTTL,
		DepositorTTL:      depositorTTL,
		CheckoutTTL:       checkoutTTL,
	}, nil
}

func loadPOSCfg() (*POSCfg, error) {
	const (
		defaultBaseURL    = "https://connect.squareup.com"
		defaultAPIVersion = "2024-10-17"
		defaultTimeout    = 10 * time.Second
		defaultMaxRetries = 2
	)

	timeout, err := parseDurationEnv("POS_TIMEOUT", defaultTimeout)
	if err != nil {
		return nil, e.Wrap("POS_TIMEOUT", err)
	}

	maxRetries, err := parseIntEnv("POS_MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		return nil, e.Wrap("POS_MAX_RETRIES", err)
	}

	return &POSCfg{
		BaseURL:       getEnvOrDefault("POS_BASE_URL", defaultBaseURL),
		AccessToken:   getEnv("POS_ACCESS_TOKEN"),
		APIVersion:    getEnvOrDefault("POS_API_VERSION", defaultAPIVersion),
		LocationID:    getEnv("POS_LOCATION_ID"),
		WebhookSecret: getEnv("POS_WEBHOOK_SECRET"),
		Timeout:       timeout,
		MaxRetries:    maxRetries,
	}, nil
}

func loadMarketplaceCfg() (*MarketplaceCfg, error) {
	const (
		defaultBaseURL    = "https://api.ebay.com"
		defaultTimeout    = 10 * time.Second
		defaultMaxRetries = 2
	)

	timeout, err := parseDurationEnv("MARKETPLACE_TIMEOUT", defaultTimeout)
	if err != nil {
		return nil, e.Wrap("MARKETPLACE_TIMEOUT", err)
	}

	maxRetries, err := parseIntEnv("MARKETPLACE_MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		return nil, e.Wrap("MARKETPLACE_MAX_RETRIES", err)
	}

	return &MarketplaceCfg{
		BaseURL:           getEnvOrDefault("MARKETPLACE_BASE_URL", defaultBaseURL),
		AccessToken:       getEnv("MARKETPLACE_ACCESS_TOKEN"),
		WebhookSecret:     getEnv("MARKETPLACE_WEBHOOK_SECRET"),
		VerificationToken: getEnv("MARKETPLACE_VERIFICATION_TOKEN"),
		EndpointURL:       getEnv("MARKETPLACE_ENDPOINT_URL"),
		Timeout:           timeout,
		MaxRetries:        maxRetries,
	}, nil
}

func loadStorefrontCfg() *StorefrontCfg {
	return &StorefrontCfg{
		WebhookSecret: getEnv("STOREFRONT_WEBHOOK_SECRET"),
		CheckoutURL:   getEnv("STOREFRONT_CHECKOUT_URL"),
	}
}

func loadPromotionCfg() (*PromotionCfg, error) {
	const (
		defaultDeliveryFee     = "15.00"
		defaultDiscountPercent = 15
		defaultMinPriorOrders  = 2
	)

	fee, err := decimal.NewFromString(getEnvOrDefault("PROMO_DELIVERY_FEE", defaultDeliveryFee))
	if err != nil || fee.IsNegative() {
		return nil, e.Wrap("PROMO_DELIVERY_FEE", e.ErrIncorrectEnvVariable)
	}

	percent, err := parseIntEnv("PROMO_DISCOUNT_PERCENT", defaultDiscountPercent)
	if err != nil || percent < 0 || percent > 100 {
		return nil, e.Wrap("PROMO_DISCOUNT_PERCENT", e.ErrIncorrectEnvVariable)
	}

	minPrior, err := parseIntEnv("PROMO_MIN_PRIOR_ORDERS", defaultMinPriorOrders)
	if err != nil {
		return nil, e.Wrap("PROMO_MIN_PRIOR_ORDERS", err)
	}

	return &PromotionCfg{
		DeliveryFee:     fee.Shift(2).Round(0).IntPart(),
		DiscountPercent: int64(percent),
		MinPriorOrders:  minPrior,
	}, nil
}

func loadReconciliationCfg() (*ReconciliationCfg, error) {
	const (
		defaultTimezone        = "Europe/Paris"
		defaultDedupeBatchSize = 500
		defaultImportMaxRows   = 5000
		defaultAttempts        = 5
		defaultDelistTimeout   = 10 * time.Second
		defaultShutdownTimeout = 15 * time.Second
	)

	loc, err := time.LoadLocation(getEnvOrDefault("BUSINESS_TIMEZONE", defaultTimezone))
	if err != nil {
		return nil, e.Wrap("BUSINESS_TIMEZONE", err)
	}

	batch, err := parseIntEnv("DEDUPE_BATCH_SIZE", defaultDedupeBatchSize)
	if err != nil {
		return nil, e.Wrap("DEDUPE_BATCH_SIZE", err)
	}

	maxRows, err := parseIntEnv("IMPORT_MAX_ROWS", defaultImportMaxRows)
	if err != nil {
		return nil, e.Wrap("IMPORT_MAX_ROWS", err)
	}

	attempts, err := parseIntEnv("DISPOSITION_MAX_ATTEMPTS", defaultAttempts)
	if err != nil {
		return nil, e.Wrap("DISPOSITION_MAX_ATTEMPTS", err)
	}

	delistTimeout, err := parseDurationEnv("DELIST_TIMEOUT", defaultDelistTimeout)
	if err != nil {
		return nil, e.Wrap("DELIST_TIMEOUT", err)
	}

	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", defaultShutdownTimeout)
	if err != nil {
		return nil, e.Wrap("SHUTDOWN_TIMEOUT", err)
	}

	return &ReconciliationCfg{
		Location:            loc,
		DedupeBatchSize:     batch,
		ImportMaxRows:       maxRows,
		DispositionAttempts: attempts,
		DelistTimeout:       delistTimeout,
		ShutdownTimeout:     shutdownTimeout,
	}, nil
}

func loadTelemetryCfg() (*TelemetryCfg, error) {
	insecure, err := parseBoolEnv("OTEL_EXPORTER_OTLP_INSECURE", true)
	if err != nil {
		return nil, e.Wrap("OTEL_EXPORTER_OTLP_INSECURE", err)
	}

	return &TelemetryCfg{
		ServiceName:  getEnvOrDefault("SERVICE_NAME", "sales-reconciliation"),
		Env:          getEnvOrDefault("APP_ENV", "development"),
		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTLPInsecure: insecure,
	}, nil
}

// getEnv возвращает значение переменной окружения.
// Возвращает пустую строку, если переменная не задана.
func getEnv(key string) string {
	return os.Getenv(key)
}

// getEnvOrDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// parseDurationEnv считывает длительность или возвращает значение по умолчанию.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	if v := os.Getenv(key); v != "" {
		return time.ParseDuration(v)
	}

	return defaultValue, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return intValue, nil
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return b, nil
}
