package service

import (
	"time"

	"github.com/gitlens/backend/internal/model"
	"github.com/gitlens/backend/internal/repository"
)

type mockRepoRepo struct {
	CreateFunc   func(repo *model.Repository) error
	ListFunc     func() ([]model.Repository, error)
	GetFunc      func(id uint) (*model.Repository, error)
	GetBasicFunc func(id uint) (*model.Repository, error)
	GetByURLFunc func(url string) (*model.Repository, error)
	SaveFunc     func(repo *model.Repository) error
	DeleteFunc   func(id uint) error
}

func (m *mockRepoRepo) Create(repo *model.Repository) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(repo)
	}
	return nil
}

func (m *mockRepoRepo) List() ([]model.Repository, error) {
	if m.ListFunc != nil {
		return m.ListFunc()
	}
	return nil, nil
}

func (m *mockRepoRepo) Get(id uint) (*model.Repository, error) {
	if m.GetFunc != nil {
		return m.GetFunc(id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockRepoRepo) GetBasic(id uint) (*model.Repository, error) {
	if m.GetBasicFunc != nil {
		return m.GetBasicFunc(id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockRepoRepo) GetByURL(url string) (*model.Repository, error) {
	if m.GetByURLFunc != nil {
		return m.GetByURLFunc(url)
	}
	return nil, repository.ErrNotFound
}

func (m *mockRepoRepo) Save(repo *model.Repository) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(repo)
	}
	return nil
}

func (m *mockRepoRepo) Delete(id uint) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(id)
	}
	return nil
}

type mockTaskRepo struct {
	CreateFunc             func(task *model.AnalysisTask) error
	GetByRepositoryFunc    func(repoID uint) ([]model.AnalysisTask, error)
	GetFunc                func(id uint) (*model.AnalysisTask, error)
	SaveFunc               func(task *model.AnalysisTask) error
	CleanupStuckTasksFunc  func(timeout time.Duration) (int64, error)
	DeleteByRepositoryFunc func(repoID uint) error
	DeleteFunc             func(id uint) error
	GetTaskStatsFunc       func(repoID uint) (map[string]int64, error)
}

func (m *mockTaskRepo) Create(task *model.AnalysisTask) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(task)
	}
	return nil
}

func (m *mockTaskRepo) GetByRepository(repoID uint) ([]model.AnalysisTask, error) {
	if m.GetByRepositoryFunc != nil {
		return m.GetByRepositoryFunc(repoID)
	}
	return nil, nil
}

func (m *mockTaskRepo) Get(id uint) (*model.AnalysisTask, error) {
	if m.GetFunc != nil {
		return m.GetFunc(id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockTaskRepo) Save(task *model.AnalysisTask) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(task)
	}
	return nil
}

func (m *mockTaskRepo) CleanupStuckTasks(timeout time.Duration) (int64, error) {
	if m.CleanupStuckTasksFunc != nil {
		return m.CleanupStuckTasksFunc(timeout)
	}
	return 0, nil
}

func (m *mockTaskRepo) DeleteByRepositoryID(repoID uint) error {
	if m.DeleteByRepositoryFunc != nil {
		return m.DeleteByRepositoryFunc(repoID)
	}
	return nil
}

func (m *mockTaskRepo) Delete(id uint) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(id)
	}
	return nil
}

func (m *mockTaskRepo) GetTaskStats(repoID uint) (map[string]int64, error) {
	if m.GetTaskStatsFunc != nil {
		return m.GetTaskStatsFunc(repoID)
	}
	return map[string]int64{}, nil
}

type mockReportRepo struct {
	CreateVersionedFunc    func(report *model.Report) error
	GetByRepositoryFunc    func(repoID uint) ([]model.Report, error)
	GetLatestByTypeFunc    func(repoID uint, reportType string) (*model.Report, error)
	GetFunc                func(id uint) (*model.Report, error)
	DeleteByRepositoryFunc func(repoID uint) error
}

func (m *mockReportRepo) CreateVersioned(report *model.Report) error {
	if m.CreateVersionedFunc != nil {
		return m.CreateVersionedFunc(report)
	}
	return nil
}

func (m *mockReportRepo) GetByRepository(repoID uint) ([]model.Report, error) {
	if m.GetByRepositoryFunc != nil {
		return m.GetByRepositoryFunc(repoID)
	}
	return nil, nil
}

func (m *mockReportRepo) GetLatestByType(repoID uint, reportType string) (*model.Report, error) {
	if m.GetLatestByTypeFunc != nil {
		return m.GetLatestByTypeFunc(repoID, reportType)
	}
	return nil, repository.ErrNotFound
}

func (m *mockReportRepo) Get(id uint) (*model.Report, error) {
	if m.GetFunc != nil {
		return m.GetFunc(id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockReportRepo) DeleteByRepositoryID(repoID uint) error {
	if m.DeleteByRepositoryFunc != nil {
		return m.DeleteByRepositoryFunc(repoID)
	}
	return nil
}

type mockFindingRepo struct {
	CreateBatchFunc        func(findings []model.Finding) error
	GetByRepositoryFunc    func(repoID uint) ([]model.Finding, error)
	DeleteByRepositoryFunc func(repoID uint) error
}

func (m *mockFindingRepo) CreateBatch(findings []model.Finding) error {
	if m.CreateBatchFunc != nil {
		return m.CreateBatchFunc(findings)
	}
	return nil
}

func (m *mockFindingRepo) GetByRepository(repoID uint) ([]model.Finding, error) {
	if m.GetByRepositoryFunc != nil {
		return m.GetByRepositoryFunc(repoID)
	}
	return nil, nil
}

func (m *mockFindingRepo) DeleteByRepositoryID(repoID uint) error {
	if m.DeleteByRepositoryFunc != nil {
		return m.DeleteByRepositoryFunc(repoID)
	}
	return nil
}

type mockChatRepo struct {
	AppendFunc             func(msg *model.ChatMessage) error
	HistoryFunc            func(repoID uint) ([]model.ChatMessage, error)
	RecentFunc             func(repoID uint, limit int) ([]model.ChatMessage, error)
	DeleteByRepositoryFunc func(repoID uint) error
}

func (m *mockChatRepo) Append(msg *model.ChatMessage) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(msg)
	}
	return nil
}

func (m *mockChatRepo) History(repoID uint) ([]model.ChatMessage, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(repoID)
	}
	return nil, nil
}

func (m *mockChatRepo) Recent(repoID uint, limit int) ([]model.ChatMessage, error) {
	if m.RecentFunc != nil {
		return m.RecentFunc(repoID, limit)
	}
	return nil, nil
}

func (m *mockChatRepo) DeleteByRepositoryID(repoID uint) error {
	if m.DeleteByRepositoryFunc != nil {
		return m.DeleteByRepositoryFunc(repoID)
	}
	return nil
}
