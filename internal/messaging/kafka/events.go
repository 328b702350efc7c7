package kafka

// Topics для Kafka.
const (
	// TopicOrderEvents — topic интеграционных событий жизненного цикла заказов.
	// Тело сообщения — конверт outbox-записи (см. OutboxTopicPublisher).
	TopicOrderEvents = "orders.order.events"
)
