package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/gitlens/backend/config"
	"github.com/gitlens/backend/internal/eventbus"
	"github.com/gitlens/backend/internal/model"
	"github.com/gitlens/backend/internal/pkg/github"
	"github.com/gitlens/backend/internal/pkg/llm"
	"github.com/gitlens/backend/internal/repository"
	"github.com/gitlens/backend/internal/service/orchestrator"
	"github.com/gitlens/backend/internal/service/statemachine"
)

// TaskService 分析任务的创建、调度与执行
type TaskService struct {
	cfg         *config.Config
	repoRepo    repository.RepoRepository
	taskRepo    repository.TaskRepository
	reportRepo  repository.ReportRepository
	findingRepo repository.FindingRepository
	github      *github.Client
	snapshot    *SnapshotService
	llm         *llm.Client

	taskStateMachine *statemachine.TaskStateMachine
	repoStateMachine *statemachine.RepositoryStateMachine

	orchestrator *orchestrator.Orchestrator
	taskBus      *eventbus.TaskEventBus
}

func NewTaskService(
	cfg *config.Config,
	repoRepo repository.RepoRepository,
	taskRepo repository.TaskRepository,
	reportRepo repository.ReportRepository,
	findingRepo repository.FindingRepository,
	githubClient *github.Client,
	snapshot *SnapshotService,
	llmClient *llm.Client,
) *TaskService {
	return &TaskService{
		cfg:              cfg,
		repoRepo:         repoRepo,
		taskRepo:         taskRepo,
		reportRepo:       reportRepo,
		findingRepo:      findingRepo,
		github:           githubClient,
		snapshot:         snapshot,
		llm:              llmClient,
		taskStateMachine: statemachine.NewTaskStateMachine(),
		repoStateMachine: statemachine.NewRepositoryStateMachine(),
	}
}

// SetOrchestrator 注入编排器（编排器初始化依赖本服务作为执行器，所以后置注入）
func (s *TaskService) SetOrchestrator(o *orchestrator.Orchestrator) {
	s.orchestrator = o
}

// SetEventBus 注入任务事件总线
func (s *TaskService) SetEventBus(bus *eventbus.TaskEventBus) {
	s.taskBus = bus
}

var ErrAnalysisInProgress = errors.New("analysis already in progress")

// AnalyzeOptions 单轮分析的可选参数
type AnalyzeOptions struct {
	Plagiarism bool `json:"plagiarism"` // 是否执行相似代码检查
	FileLimit  int  `json:"file_limit"` // 本轮拉取文件数上限，0 取配置默认值
}

// StartAnalysis 为仓库创建一轮分析任务并全部入队
// 仓库状态迁移: ready/completed/error -> analyzing
func (s *TaskService) StartAnalysis(ctx context.Context, repoID uint, opts AnalyzeOptions) ([]model.AnalysisTask, error) {
	repo, err := s.repoRepo.GetBasic(repoID)
	if err != nil {
		return nil, fmt.Errorf("获取仓库失败: %w", err)
	}

	currentStatus := statemachine.RepositoryStatus(repo.Status)
	if !statemachine.CanExecuteTasks(currentStatus) {
		return nil, fmt.Errorf("仓库状态不允许执行分析: current=%s", currentStatus)
	}

	stats, err := s.taskRepo.GetTaskStats(repoID)
	if err != nil {
		return nil, fmt.Errorf("获取任务统计失败: %w", err)
	}
	if stats[model.TaskStatusQueued] > 0 || stats[model.TaskStatusRunning] > 0 {
		return nil, ErrAnalysisInProgress
	}

	// 每轮分析重新抓取仓库内容
	s.snapshot.Invalidate(repoID)

	fileLimit := opts.FileLimit
	if fileLimit <= 0 {
		fileLimit = s.cfg.GitHub.FileLimit
	}

	tasks := make([]model.AnalysisTask, 0, len(model.TaskTypes))
	jobs := make([]*orchestrator.Job, 0, len(model.TaskTypes))
	for _, tt := range model.TaskTypes {
		if tt.Type == model.TaskTypePlagiarism && !opts.Plagiarism {
			continue
		}
		task := model.AnalysisTask{
			RepositoryID: repoID,
			TaskID:       uuid.NewString(),
			Type:         tt.Type,
			Title:        tt.Title,
			Status:       string(statemachine.TaskStatusPending),
			SortOrder:    tt.SortOrder,
			FileLimit:    fileLimit,
		}
		if err := s.taskRepo.Create(&task); err != nil {
			return nil, fmt.Errorf("创建%s任务失败: %w", tt.Title, err)
		}

		task.Status = string(statemachine.TaskStatusQueued)
		if err := s.taskRepo.Save(&task); err != nil {
			return nil, fmt.Errorf("更新任务状态失败: %w", err)
		}

		tasks = append(tasks, task)
		jobs = append(jobs, orchestrator.NewTaskJob(task.ID))
	}

	if err := s.orchestrator.EnqueueBatch(jobs); err != nil {
		return nil, fmt.Errorf("批量提交任务失败: %w", err)
	}

	// 仓库进入分析中
	if err := s.repoStateMachine.Transition(currentStatus, statemachine.RepoStatusAnalyzing, repoID); err == nil {
		repo.Status = string(statemachine.RepoStatusAnalyzing)
		repo.ErrorMsg = ""
		if err := s.repoRepo.Save(repo); err != nil {
			klog.Errorf("更新仓库状态失败: repoID=%d, error=%v", repoID, err)
		}
	}

	klog.V(6).Infof("分析任务已入队: repoID=%d, tasks=%d", repoID, len(jobs))
	return tasks, nil
}

// ExecuteTask 执行任务（由编排器worker调用）
// 状态迁移: queued -> running -> succeeded/failed/canceled
func (s *TaskService) ExecuteTask(ctx context.Context, taskID uint) error {
	klog.V(6).Infof("开始执行任务: taskID=%d", taskID)

	task, err := s.taskRepo.Get(taskID)
	if err != nil {
		klog.V(6).Infof("获取任务失败: taskID=%d, error=%v", taskID, err)
		return err
	}

	oldStatus := statemachine.TaskStatus(task.Status)
	if err := s.taskStateMachine.Transition(oldStatus, statemachine.TaskStatusRunning, taskID); err != nil {
		return fmt.Errorf("任务状态迁移失败: %w", err)
	}

	now := time.Now()
	task.Status = string(statemachine.TaskStatusRunning)
	task.StartedAt = &now
	task.ErrorMsg = ""
	if err := s.taskRepo.Save(task); err != nil {
		return fmt.Errorf("更新任务状态失败: %w", err)
	}

	execErr := s.executeTaskLogic(ctx, task)
	if execErr != nil {
		// 取消产生的失败不再覆盖已落库的 canceled 状态
		if errors.Is(execErr, context.Canceled) {
			if current, err := s.taskRepo.Get(taskID); err == nil &&
				current.Status == string(statemachine.TaskStatusCanceled) {
				klog.V(6).Infof("任务已被取消，跳过失败落库: taskID=%d", taskID)
				return nil
			}
		}
		_ = s.failTask(task, fmt.Sprintf("任务执行失败: %v", execErr))
		return execErr
	}

	_ = s.succeedTask(task)
	return nil
}

// executeTaskLogic 按任务类型分发执行，不含状态管理
func (s *TaskService) executeTaskLogic(ctx context.Context, task *model.AnalysisTask) error {
	repo, err := s.repoRepo.GetBasic(task.RepositoryID)
	if err != nil {
		return fmt.Errorf("获取仓库失败: %w", err)
	}

	snapshot, err := s.snapshot.Get(ctx, repo, task.FileLimit)
	if err != nil {
		return fmt.Errorf("获取仓库快照失败: %w", err)
	}

	switch task.Type {
	case model.TaskTypeStructure:
		return s.analyzeStructure(ctx, repo, task, snapshot)
	case model.TaskTypeQuality:
		return s.analyzeQuality(ctx, repo, task, snapshot)
	case model.TaskTypeDependencies:
		return s.analyzeDependencies(ctx, repo, task, snapshot)
	case model.TaskTypePlagiarism:
		return s.analyzePlagiarism(ctx, repo, task, snapshot)
	default:
		return fmt.Errorf("未知任务类型: %s", task.Type)
	}
}

// succeedTask 状态迁移: running -> succeeded
func (s *TaskService) succeedTask(task *model.AnalysisTask) error {
	oldStatus := statemachine.TaskStatus(task.Status)
	if err := s.taskStateMachine.Transition(oldStatus, statemachine.TaskStatusSucceeded, task.ID); err != nil {
		klog.Errorf("任务状态迁移失败: taskID=%d, error=%v", task.ID, err)
		return err
	}

	completedAt := time.Now()
	task.Status = string(statemachine.TaskStatusSucceeded)
	task.CompletedAt = &completedAt
	if err := s.taskRepo.Save(task); err != nil {
		klog.Errorf("更新任务状态失败: taskID=%d, error=%v", task.ID, err)
		return err
	}

	if task.StartedAt != nil {
		klog.V(6).Infof("任务执行完成: taskID=%d, duration=%v", task.ID, completedAt.Sub(*task.StartedAt))
	}

	s.publishTaskEvent(eventbus.TaskEventSucceeded, task)
	return nil
}

// failTask 状态迁移: running -> failed
func (s *TaskService) failTask(task *model.AnalysisTask, errMsg string) error {
	klog.V(6).Infof("任务失败: taskID=%d, error=%s", task.ID, errMsg)

	oldStatus := statemachine.TaskStatus(task.Status)
	if err := s.taskStateMachine.Transition(oldStatus, statemachine.TaskStatusFailed, task.ID); err != nil {
		klog.Errorf("任务状态迁移失败: taskID=%d, error=%v", task.ID, err)
		return err
	}

	completedAt := time.Now()
	task.Status = string(statemachine.TaskStatusFailed)
	task.ErrorMsg = errMsg
	task.CompletedAt = &completedAt
	if err := s.taskRepo.Save(task); err != nil {
		klog.Errorf("更新任务状态失败: taskID=%d, error=%v", task.ID, err)
		return err
	}

	s.publishTaskEvent(eventbus.TaskEventFailed, task)
	return nil
}

// Cancel 取消任务
// 状态迁移: queued/running -> canceled
func (s *TaskService) Cancel(taskID uint) error {
	klog.V(6).Infof("取消任务: taskID=%d", taskID)

	task, err := s.taskRepo.Get(taskID)
	if err != nil {
		return fmt.Errorf("获取任务失败: %w", err)
	}

	oldStatus := statemachine.TaskStatus(task.Status)
	if oldStatus == statemachine.TaskStatusCanceled {
		return nil
	}

	if oldStatus == statemachine.TaskStatusRunning && s.orchestrator != nil {
		if s.orchestrator.CancelTask(taskID) {
			klog.V(6).Infof("已触发运行中任务的取消: taskID=%d", taskID)
		} else {
			klog.Warningf("尝试取消运行中任务，但编排器中未找到: taskID=%d", taskID)
		}
	}

	if err := s.taskStateMachine.Transition(oldStatus, statemachine.TaskStatusCanceled, taskID); err != nil {
		return fmt.Errorf("任务状态迁移失败: %w", err)
	}

	now := time.Now()
	task.Status = string(statemachine.TaskStatusCanceled)
	task.CompletedAt = &now
	task.ErrorMsg = "用户手动取消"
	if err := s.taskRepo.Save(task); err != nil {
		return fmt.Errorf("更新任务状态失败: %w", err)
	}

	s.publishTaskEvent(eventbus.TaskEventCanceled, task)
	return nil
}

// Reset 重置任务
// 状态迁移: failed/succeeded/canceled -> pending
func (s *TaskService) Reset(taskID uint) error {
	task, err := s.taskRepo.Get(taskID)
	if err != nil {
		return fmt.Errorf("获取任务失败: %w", err)
	}

	oldStatus := statemachine.TaskStatus(task.Status)
	if err := s.taskStateMachine.Transition(oldStatus, statemachine.TaskStatusPending, taskID); err != nil {
		return fmt.Errorf("任务状态迁移失败: %w", err)
	}

	task.Status = string(statemachine.TaskStatusPending)
	task.ErrorMsg = ""
	task.StartedAt = nil
	task.CompletedAt = nil
	if err := s.taskRepo.Save(task); err != nil {
		return fmt.Errorf("更新任务状态失败: %w", err)
	}

	klog.V(6).Infof("任务已重置: taskID=%d", taskID)
	return nil
}

// Retry 重试任务：先重置再重新入队
func (s *TaskService) Retry(taskID uint) error {
	klog.V(6).Infof("重试任务: taskID=%d", taskID)

	if err := s.Reset(taskID); err != nil {
		return fmt.Errorf("重置任务失败: %w", err)
	}
	if err := s.Enqueue(taskID); err != nil {
		return fmt.Errorf("任务入队失败: %w", err)
	}
	return nil
}

// Enqueue 将任务提交到编排器
// 状态迁移: pending -> queued
func (s *TaskService) Enqueue(taskID uint) error {
	task, err := s.taskRepo.Get(taskID)
	if err != nil {
		return fmt.Errorf("获取任务失败: %w", err)
	}

	oldStatus := statemachine.TaskStatus(task.Status)
	if oldStatus == statemachine.TaskStatusQueued {
		// 已在队列中（服务重启恢复），仅刷新时间
		if err := s.taskRepo.Save(task); err != nil {
			return fmt.Errorf("刷新任务时间失败: %w", err)
		}
	} else {
		if err := s.taskStateMachine.Transition(oldStatus, statemachine.TaskStatusQueued, taskID); err != nil {
			return fmt.Errorf("任务状态迁移失败: %w", err)
		}
		task.Status = string(statemachine.TaskStatusQueued)
		if err := s.taskRepo.Save(task); err != nil {
			return fmt.Errorf("更新任务状态失败: %w", err)
		}
	}

	if err := s.orchestrator.EnqueueJob(orchestrator.NewTaskJob(taskID)); err != nil {
		if oldStatus != statemachine.TaskStatusQueued {
			task.Status = string(oldStatus)
			_ = s.taskRepo.Save(task)
		}
		return fmt.Errorf("任务入队失败: %w", err)
	}
	return nil
}

// Get 获取单个任务
func (s *TaskService) Get(id uint) (*model.AnalysisTask, error) {
	return s.taskRepo.Get(id)
}

// GetByRepository 获取仓库的所有任务
func (s *TaskService) GetByRepository(repoID uint) ([]model.AnalysisTask, error) {
	return s.taskRepo.GetByRepository(repoID)
}

// CleanupStuckTasks 清理卡住的任务（运行超过指定时间）
func (s *TaskService) CleanupStuckTasks(timeout time.Duration) (int64, error) {
	count, err := s.taskRepo.CleanupStuckTasks(timeout)
	if err != nil {
		return 0, fmt.Errorf("清理超时任务失败: %w", err)
	}
	if count > 0 {
		klog.V(6).Infof("清理了 %d 个超时任务", count)
	}
	return count, nil
}

// GetQueueStatus 获取编排器队列状态
func (s *TaskService) GetQueueStatus() *orchestrator.QueueStatus {
	if s.orchestrator == nil {
		return nil
	}
	return s.orchestrator.GetQueueStatus()
}

func (s *TaskService) publishTaskEvent(eventType eventbus.TaskEventType, task *model.AnalysisTask) {
	if s.taskBus == nil {
		return
	}
	event := eventbus.TaskEvent{
		Type:         eventType,
		RepositoryID: task.RepositoryID,
		TaskID:       task.ID,
		TaskType:     task.Type,
	}
	if err := s.taskBus.Publish(context.Background(), event.Type, event); err != nil {
		klog.Errorf("任务事件发布失败: taskID=%d, type=%s, error=%v", task.ID, eventType, err)
	}
}
