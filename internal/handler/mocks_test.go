package handler

import (
	"time"

	"github.com/gitlens/backend/internal/model"
	"github.com/gitlens/backend/internal/repository"
)

type mockRepoRepo struct {
	GetFunc      func(id uint) (*model.Repository, error)
	GetBasicFunc func(id uint) (*model.Repository, error)
	GetByURLFunc func(url string) (*model.Repository, error)
	CreateFunc   func(repo *model.Repository) error
	SaveFunc     func(repo *model.Repository) error
}

func (m *mockRepoRepo) Create(repo *model.Repository) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(repo)
	}
	return nil
}

func (m *mockRepoRepo) List() ([]model.Repository, error) {
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
	return nil
}

type mockTaskRepo struct {
	GetFunc  func(id uint) (*model.AnalysisTask, error)
	SaveFunc func(task *model.AnalysisTask) error
}

func (m *mockTaskRepo) Create(task *model.AnalysisTask) error {
	return nil
}

func (m *mockTaskRepo) GetByRepository(repoID uint) ([]model.AnalysisTask, error) {
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
	return 0, nil
}

func (m *mockTaskRepo) DeleteByRepositoryID(repoID uint) error {
	return nil
}

func (m *mockTaskRepo) Delete(id uint) error {
	return nil
}

func (m *mockTaskRepo) GetTaskStats(repoID uint) (map[string]int64, error) {
	return map[string]int64{}, nil
}

type mockReportRepo struct {
	GetLatestByTypeFunc func(repoID uint, reportType string) (*model.Report, error)
}

func (m *mockReportRepo) CreateVersioned(report *model.Report) error {
	return nil
}

func (m *mockReportRepo) GetByRepository(repoID uint) ([]model.Report, error) {
	return nil, nil
}

func (m *mockReportRepo) GetLatestByType(repoID uint, reportType string) (*model.Report, error) {
	if m.GetLatestByTypeFunc != nil {
		return m.GetLatestByTypeFunc(repoID, reportType)
	}
	return nil, repository.ErrNotFound
}

func (m *mockReportRepo) Get(id uint) (*model.Report, error) {
	return nil, repository.ErrNotFound
}

func (m *mockReportRepo) DeleteByRepositoryID(repoID uint) error {
	return nil
}

type mockFindingRepo struct{}

func (m *mockFindingRepo) CreateBatch(findings []model.Finding) error {
	return nil
}

func (m *mockFindingRepo) GetByRepository(repoID uint) ([]model.Finding, error) {
	return nil, nil
}

func (m *mockFindingRepo) DeleteByRepositoryID(repoID uint) error {
	return nil
}

type mockChatRepo struct {
	HistoryFunc func(repoID uint) ([]model.ChatMessage, error)
}

func (m *mockChatRepo) Append(msg *model.ChatMessage) error {
	return nil
}

func (m *mockChatRepo) History(repoID uint) ([]model.ChatMessage, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(repoID)
	}
	return nil, nil
}

func (m *mockChatRepo) Recent(repoID uint, limit int) ([]model.ChatMessage, error) {
	return nil, nil
}

func (m *mockChatRepo) DeleteByRepositoryID(repoID uint) error {
	return nil
}
