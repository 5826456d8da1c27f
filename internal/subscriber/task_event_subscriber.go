package subscriber

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/gitlens/backend/internal/eventbus"
)

// TaskEventSubscriber 任务结束后汇总仓库状态
type TaskEventSubscriber struct {
	statusService repoStatusService
}

type repoStatusService interface {
	RefreshRepositoryStatus(ctx context.Context, repoID uint) error
}

func NewTaskEventSubscriber(statusService repoStatusService) *TaskEventSubscriber {
	return &TaskEventSubscriber{statusService: statusService}
}

func (s *TaskEventSubscriber) Register(bus *eventbus.TaskEventBus) {
	if bus == nil {
		return
	}
	bus.Subscribe(eventbus.TaskEventSucceeded, s.handleTaskFinished)
	bus.Subscribe(eventbus.TaskEventFailed, s.handleTaskFinished)
	bus.Subscribe(eventbus.TaskEventCanceled, s.handleTaskFinished)
}

func (s *TaskEventSubscriber) handleTaskFinished(ctx context.Context, event eventbus.TaskEvent) error {
	if event.RepositoryID == 0 {
		return fmt.Errorf("仓库ID为空")
	}
	if err := s.statusService.RefreshRepositoryStatus(ctx, event.RepositoryID); err != nil {
		klog.Errorf("任务事件处理失败: type=%s, repoID=%d, taskID=%d, error=%v",
			event.Type, event.RepositoryID, event.TaskID, err)
		return err
	}
	klog.V(6).Infof("任务事件处理成功: type=%s, repoID=%d, taskID=%d, taskType=%s",
		event.Type, event.RepositoryID, event.TaskID, event.TaskType)
	return nil
}
