package topics

const (
	// Activity (trilha de auditoria)
	PoolActivity = "pool_activity"

	// DLQs
	PoolActivityDLQ = "pool_activity_dlq"

	// Redis Pub/Sub: avisa que o estado do pool mudou
	PoolChangedChannel = "pool_changed_broadcast"
)
