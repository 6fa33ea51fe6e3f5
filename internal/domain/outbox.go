package domain

import "time"

type OutboxStatus string

const (
	OutboxPending    OutboxStatus = "pending"
	OutboxProcessing OutboxStatus = "processing"
	OutboxProcessed  OutboxStatus = "processed"
)

type OutboxEventType string

const (
	EventSaleRecorded      OutboxEventType = "sale.recorded"
	EventSaleAttributed    OutboxEventType = "sale.attributed"
	EventSaleDeleted       OutboxEventType = "sale.deleted"
	EventSalesDeduplicated OutboxEventType = "sales.deduplicated"
)

// OutboxEvent — событие журнала продаж, ожидающее публикации в Kafka.
type OutboxEvent struct {
	ID          int64
	EventID     string
	EventType   OutboxEventType
	AggregateID string
	Payload     []byte
	Status      OutboxStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}
