package subscriber

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/gitlens/backend/internal/eventbus"
)

// RepositoryEventSubscriber 新增仓库后异步拉取 GitHub 元数据
type RepositoryEventSubscriber struct {
	repoService repositoryEventService
}

type repositoryEventService interface {
	FetchMetadata(ctx context.Context, repoID uint) error
}

func NewRepositoryEventSubscriber(repoService repositoryEventService) *RepositoryEventSubscriber {
	return &RepositoryEventSubscriber{repoService: repoService}
}

func (s *RepositoryEventSubscriber) Register(bus *eventbus.RepositoryEventBus) {
	if bus == nil {
		return
	}
	bus.Subscribe(eventbus.RepositoryEventAdded, s.handleRepoAdded)
}

func (s *RepositoryEventSubscriber) handleRepoAdded(ctx context.Context, event eventbus.RepositoryEvent) error {
	if event.RepositoryID == 0 {
		return fmt.Errorf("仓库ID为空")
	}

	if err := s.repoService.FetchMetadata(ctx, event.RepositoryID); err != nil {
		klog.Errorf("FetchMetadata failed: repoID=%d, error=%v", event.RepositoryID, err)
		return err
	}

	klog.V(6).Infof("仓库事件处理成功: type=%s, repoID=%d", event.Type, event.RepositoryID)
	return nil
}
