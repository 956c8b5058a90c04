package consts

import "fmt"

// Redis key layout. Executors write these keys; the controller reads them.
const (
	SkaldListHash = "skalds:hash"
	SkaldModeHash = "skalds:mode:hash"
)

func SkaldHeartbeatKey(skaldID string) string {
	return fmt.Sprintf("skalds:%s:heartbeat", skaldID)
}

func SkaldAllowTaskClassNameKey(skaldID string) string {
	return fmt.Sprintf("skalds:%s:allow-task-class-name", skaldID)
}

func SkaldAllTaskKey(skaldID string) string {
	return fmt.Sprintf("skalds:%s:all-task", skaldID)
}

// SkaldKeyPattern matches every key owned by one skald; used by the monitor's
// eviction sweep.
func SkaldKeyPattern(skaldID string) string {
	return fmt.Sprintf("skalds:%s:*", skaldID)
}

func TaskHeartbeatKey(taskID string) string {
	return fmt.Sprintf("task:%s:heartbeat", taskID)
}

func TaskHasErrorKey(taskID string) string {
	return fmt.Sprintf("task:%s:has-error", taskID)
}

func TaskExceptionKey(taskID string) string {
	return fmt.Sprintf("task:%s:exception", taskID)
}
