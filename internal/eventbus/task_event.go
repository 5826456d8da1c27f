package eventbus

type TaskEventType string

const (
	TaskEventSucceeded TaskEventType = "Succeeded"
	TaskEventFailed    TaskEventType = "Failed"
	TaskEventCanceled  TaskEventType = "Canceled"
)

type TaskEvent struct {
	Type         TaskEventType
	RepositoryID uint
	TaskID       uint
	TaskType     string
}

type TaskEventHandler = Handler[TaskEvent]
type TaskEventBus = Bus[TaskEventType, TaskEvent]

func NewTaskEventBus() *TaskEventBus {
	return NewBus[TaskEventType, TaskEvent]()
}
