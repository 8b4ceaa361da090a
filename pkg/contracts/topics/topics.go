package topics

const (
	// Feed de eventos (simulador -> processor)
	EventFeed = "event_feed"

	// DLQs
	EventFeedDLQ = "event_feed_dlq"

	// Redis Pub/Sub usado pelo barramento de notificações entre instâncias
	NotificationsChannel = "trade_notifications"
)
