package repository

import (
	"errors"
	"time"

	"github.com/gitlens/backend/internal/model"
)

// ErrNotFound 记录不存在错误
var ErrNotFound = errors.New("record not found")

type RepoRepository interface {
	Create(repo *model.Repository) error
	List() ([]model.Repository, error)
	Get(id uint) (*model.Repository, error)
	GetBasic(id uint) (*model.Repository, error)
	GetByURL(url string) (*model.Repository, error)
	Save(repo *model.Repository) error
	Delete(id uint) error
}

type TaskRepository interface {
	Create(task *model.AnalysisTask) error
	GetByRepository(repoID uint) ([]model.AnalysisTask, error)
	Get(id uint) (*model.AnalysisTask, error)
	Save(task *model.AnalysisTask) error
	CleanupStuckTasks(timeout time.Duration) (int64, error)
	DeleteByRepositoryID(repoID uint) error
	Delete(id uint) error
	GetTaskStats(repoID uint) (map[string]int64, error)
}

type ReportRepository interface {
	CreateVersioned(report *model.Report) error
	GetByRepository(repoID uint) ([]model.Report, error)
	GetLatestByType(repoID uint, reportType string) (*model.Report, error)
	Get(id uint) (*model.Report, error)
	DeleteByRepositoryID(repoID uint) error
}

type FindingRepository interface {
	CreateBatch(findings []model.Finding) error
	GetByRepository(repoID uint) ([]model.Finding, error)
	DeleteByRepositoryID(repoID uint) error
}

type ChatRepository interface {
	Append(msg *model.ChatMessage) error
	History(repoID uint) ([]model.ChatMessage, error)
	Recent(repoID uint, limit int) ([]model.ChatMessage, error)
	DeleteByRepositoryID(repoID uint) error
}
