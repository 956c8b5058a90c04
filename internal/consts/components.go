package consts

// Infrastructure component names.
const (
	COMPONENT_LOGGING     = "logging"
	COMPONENT_REDIS       = "redis"
	COMPONENT_MONGO       = "mongo"
	COMPONENT_KAFKA       = "kafka_producer"
	COMPONENT_HTTP_SERVER = "http_server"
	COMPONENT_PROMETHEUS  = "prometheus"
	COMPONENT_TELEMETRY   = "telemetry"
)

// Controller component names.
const (
	COMP_DAO_CACHE       = "cache_dao"
	COMP_DAO_TASK        = "task_dao"
	COMP_STORE_SKALD     = "skald_store"
	COMP_STORE_TASK      = "task_store"
	COMP_MONITOR_SKALD   = "skald_monitor"
	COMP_MONITOR_TASK    = "task_monitor"
	COMP_RECONCILER      = "reconciler"
	COMP_DISPATCHER      = "dispatcher"
	COMP_EVENT_FANOUT    = "event_fanout"
	COMP_CTRL_SYSTEM     = "system_ctrl"
	COMP_CTRL_SKALD      = "skald_ctrl"
	COMP_CTRL_TASK       = "task_ctrl"
)
