package consts

// Kafka topics. The controller produces to the first three; consumers are
// executors. Message key is always the task id so each topic is
// partition-ordered per task.
const (
	TopicTaskAssign           = "task.assign"
	TopicTaskCancel           = "task.cancel"
	TopicTaskUpdateAttachment = "task.update.attachment"
	TopicTaskWorkerUpdate     = "taskworker.update"
)
