package service

import (
	"context"
	"errors"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/gitlens/backend/config"
	"github.com/gitlens/backend/internal/eventbus"
	"github.com/gitlens/backend/internal/model"
	"github.com/gitlens/backend/internal/pkg/github"
	"github.com/gitlens/backend/internal/repository"
	"github.com/gitlens/backend/internal/service/statemachine"
)

// RepositoryService 仓库生命周期管理
type RepositoryService struct {
	cfg         *config.Config
	repoRepo    repository.RepoRepository
	taskRepo    repository.TaskRepository
	reportRepo  repository.ReportRepository
	findingRepo repository.FindingRepository
	chatRepo    repository.ChatRepository
	github      *github.Client
	snapshot    *SnapshotService

	repoStateMachine *statemachine.RepositoryStateMachine
	repoAggregator   *statemachine.RepositoryStatusAggregator

	repoBus *eventbus.RepositoryEventBus
}

func NewRepositoryService(
	cfg *config.Config,
	repoRepo repository.RepoRepository,
	taskRepo repository.TaskRepository,
	reportRepo repository.ReportRepository,
	findingRepo repository.FindingRepository,
	chatRepo repository.ChatRepository,
	githubClient *github.Client,
	snapshot *SnapshotService,
) *RepositoryService {
	return &RepositoryService{
		cfg:              cfg,
		repoRepo:         repoRepo,
		taskRepo:         taskRepo,
		reportRepo:       reportRepo,
		findingRepo:      findingRepo,
		chatRepo:         chatRepo,
		github:           githubClient,
		snapshot:         snapshot,
		repoStateMachine: statemachine.NewRepositoryStateMachine(),
		repoAggregator:   statemachine.NewRepositoryStatusAggregator(),
	}
}

// SetEventBus 注入仓库事件总线。未注入时新增仓库会直接同步拉取元数据。
func (s *RepositoryService) SetEventBus(bus *eventbus.RepositoryEventBus) {
	s.repoBus = bus
}

type CreateRepoRequest struct {
	URL string `json:"url" binding:"required"`
}

var (
	ErrInvalidRepositoryURL          = errors.New("invalid repository url")
	ErrRepositoryAlreadyExists       = errors.New("repository already exists")
	ErrCannotDeleteRepoInvalidStatus = errors.New("无法删除仓库：拉取中或正在分析中的仓库不能删除")
)

// Create 登记仓库并异步拉取 GitHub 元数据
func (s *RepositoryService) Create(req CreateRepoRequest) (*model.Repository, error) {
	owner, name, err := github.ParseRepoURL(req.URL)
	if err != nil {
		klog.V(6).Infof("仓库URL校验失败: url=%s, error=%v", req.URL, err)
		return nil, ErrInvalidRepositoryURL
	}
	canonicalURL := github.CanonicalURL(owner, name)

	if existing, err := s.repoRepo.GetByURL(canonicalURL); err == nil {
		klog.V(6).Infof("仓库已存在，拒绝重复添加: repoID=%d, url=%s", existing.ID, canonicalURL)
		return nil, ErrRepositoryAlreadyExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("查询仓库失败: %w", err)
	}

	repo := &model.Repository{
		Owner:  owner,
		Name:   name,
		URL:    canonicalURL,
		Status: string(statemachine.RepoStatusPending),
	}
	if err := s.repoRepo.Create(repo); err != nil {
		return nil, fmt.Errorf("创建仓库失败: %w", err)
	}

	klog.V(6).Infof("仓库创建成功: repoID=%d, owner=%s, name=%s", repo.ID, repo.Owner, repo.Name)

	go s.notifyRepositoryAdded(repo.ID)

	return repo, nil
}

func (s *RepositoryService) notifyRepositoryAdded(repoID uint) {
	ctx := context.Background()
	if s.repoBus != nil {
		event := eventbus.RepositoryEvent{Type: eventbus.RepositoryEventAdded, RepositoryID: repoID}
		if err := s.repoBus.Publish(ctx, event.Type, event); err != nil {
			klog.Errorf("仓库事件发布失败: repoID=%d, error=%v", repoID, err)
		}
		return
	}
	if err := s.FetchMetadata(ctx, repoID); err != nil {
		klog.Errorf("拉取仓库元数据失败: repoID=%d, error=%v", repoID, err)
	}
}

// FetchMetadata 从 GitHub 拉取仓库元数据
// 状态迁移: pending -> fetching -> ready/error
func (s *RepositoryService) FetchMetadata(ctx context.Context, repoID uint) error {
	repo, err := s.repoRepo.GetBasic(repoID)
	if err != nil {
		return fmt.Errorf("获取仓库失败: %w", err)
	}

	oldStatus := statemachine.RepositoryStatus(repo.Status)
	if err := s.repoStateMachine.Transition(oldStatus, statemachine.RepoStatusFetching, repoID); err != nil {
		return fmt.Errorf("仓库状态迁移失败: %w", err)
	}

	repo.Status = string(statemachine.RepoStatusFetching)
	if err := s.repoRepo.Save(repo); err != nil {
		return fmt.Errorf("更新仓库状态失败: %w", err)
	}

	meta, err := s.github.RepoMetadata(ctx, repo.Owner, repo.Name)
	if err != nil {
		repo.Status = string(statemachine.RepoStatusError)
		repo.ErrorMsg = fmt.Sprintf("拉取元数据失败: %v", err)
		if saveErr := s.repoRepo.Save(repo); saveErr != nil {
			klog.Errorf("更新仓库状态失败: repoID=%d, error=%v", repoID, saveErr)
		}
		klog.Errorf("仓库元数据拉取失败: repoID=%d, error=%v", repoID, err)
		return err
	}

	repo.Description = meta.Description
	repo.Language = meta.Language
	repo.Stars = meta.Stars
	repo.Forks = meta.Forks
	repo.OpenIssues = meta.OpenIssues
	repo.PushedAt = meta.PushedAt
	repo.Branch = meta.DefaultBranch
	repo.Status = string(statemachine.RepoStatusReady)
	repo.ErrorMsg = ""

	if err := s.repoRepo.Save(repo); err != nil {
		return fmt.Errorf("更新仓库失败: %w", err)
	}

	klog.V(6).Infof("仓库元数据就绪: repoID=%d, language=%s, stars=%d", repoID, repo.Language, repo.Stars)
	return nil
}

// Refresh 手动重新拉取元数据（用于拉取失败的仓库）
func (s *RepositoryService) Refresh(ctx context.Context, repoID uint) error {
	repo, err := s.repoRepo.GetBasic(repoID)
	if err != nil {
		return fmt.Errorf("获取仓库失败: %w", err)
	}

	currentStatus := statemachine.RepositoryStatus(repo.Status)
	if currentStatus == statemachine.RepoStatusFetching || currentStatus == statemachine.RepoStatusAnalyzing {
		return fmt.Errorf("仓库状态不允许重新拉取: current=%s", currentStatus)
	}

	s.snapshot.Invalidate(repoID)
	go func() {
		if err := s.FetchMetadata(context.Background(), repoID); err != nil {
			klog.Errorf("拉取仓库元数据失败: repoID=%d, error=%v", repoID, err)
		}
	}()
	return nil
}

// List 获取所有仓库
func (s *RepositoryService) List() ([]model.Repository, error) {
	return s.repoRepo.List()
}

// Get 获取单个仓库（包含任务和最新报告）
func (s *RepositoryService) Get(id uint) (*model.Repository, error) {
	return s.repoRepo.Get(id)
}

// Delete 删除仓库及其全部派生数据
func (s *RepositoryService) Delete(id uint) error {
	repo, err := s.repoRepo.GetBasic(id)
	if err != nil {
		return fmt.Errorf("获取仓库失败: %w", err)
	}

	currentStatus := statemachine.RepositoryStatus(repo.Status)
	if currentStatus == statemachine.RepoStatusFetching || currentStatus == statemachine.RepoStatusAnalyzing {
		klog.V(6).Infof("拒绝删除仓库：状态不允许删除: repoID=%d, status=%s", id, currentStatus)
		return ErrCannotDeleteRepoInvalidStatus
	}

	s.snapshot.Invalidate(id)

	if err := s.chatRepo.DeleteByRepositoryID(id); err != nil {
		return fmt.Errorf("删除对话记录失败: %w", err)
	}
	if err := s.findingRepo.DeleteByRepositoryID(id); err != nil {
		return fmt.Errorf("删除查重结果失败: %w", err)
	}
	if err := s.reportRepo.DeleteByRepositoryID(id); err != nil {
		return fmt.Errorf("删除报告失败: %w", err)
	}
	if err := s.taskRepo.DeleteByRepositoryID(id); err != nil {
		return fmt.Errorf("删除任务失败: %w", err)
	}
	if err := s.repoRepo.Delete(id); err != nil {
		return fmt.Errorf("删除仓库失败: %w", err)
	}

	if s.repoBus != nil {
		event := eventbus.RepositoryEvent{Type: eventbus.RepositoryEventDeleted, RepositoryID: id}
		if err := s.repoBus.Publish(context.Background(), event.Type, event); err != nil {
			klog.Warningf("发布仓库删除事件失败: repoID=%d, error=%v", id, err)
		}
	}

	klog.V(6).Infof("仓库删除成功: repoID=%d", id)
	return nil
}

// RefreshRepositoryStatus 根据任务状态聚合仓库状态
func (s *RepositoryService) RefreshRepositoryStatus(ctx context.Context, repoID uint) error {
	repo, err := s.repoRepo.GetBasic(repoID)
	if err != nil {
		return fmt.Errorf("获取仓库失败: %w", err)
	}

	stats, err := s.taskRepo.GetTaskStats(repoID)
	if err != nil {
		return fmt.Errorf("获取任务统计失败: %w", err)
	}

	summary := buildTaskSummary(stats)
	currentStatus := statemachine.RepositoryStatus(repo.Status)
	newStatus, err := s.repoAggregator.AggregateStatus(currentStatus, summary, repoID)
	if err != nil {
		klog.Warningf("仓库状态聚合失败: repoID=%d, error=%v", repoID, err)
		return err
	}
	if newStatus == currentStatus {
		return nil
	}

	repo.Status = string(newStatus)
	if err := s.repoRepo.Save(repo); err != nil {
		return fmt.Errorf("更新仓库状态失败: %w", err)
	}

	klog.V(6).Infof("仓库状态已更新: repoID=%d, %s -> %s", repoID, currentStatus, newStatus)
	return nil
}

// buildTaskSummary 把 group-by 统计转成状态机的汇总结构
func buildTaskSummary(stats map[string]int64) *statemachine.TaskStatusSummary {
	summary := &statemachine.TaskStatusSummary{}
	for status, count := range stats {
		n := int(count)
		summary.Total += n
		switch statemachine.TaskStatus(status) {
		case statemachine.TaskStatusPending:
			summary.Pending += n
		case statemachine.TaskStatusQueued:
			summary.Queued += n
		case statemachine.TaskStatusRunning:
			summary.Running += n
		case statemachine.TaskStatusSucceeded:
			summary.Succeeded += n
		case statemachine.TaskStatusFailed:
			summary.Failed += n
		case statemachine.TaskStatusCanceled:
			summary.Canceled += n
		}
	}
	return summary
}
