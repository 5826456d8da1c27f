package model

import (
	"time"
)

// 仓库状态
const (
	RepoStatusPending   = "pending"
	RepoStatusFetching  = "fetching"
	RepoStatusReady     = "ready"
	RepoStatusAnalyzing = "analyzing"
	RepoStatusCompleted = "completed"
	RepoStatusError     = "error"
)

// 任务状态
const (
	TaskStatusPending   = "pending"
	TaskStatusQueued    = "queued"
	TaskStatusRunning   = "running"
	TaskStatusSucceeded = "succeeded"
	TaskStatusFailed    = "failed"
	TaskStatusCanceled  = "canceled"
)

// 任务类型
const (
	TaskTypeStructure    = "structure"
	TaskTypeQuality      = "quality"
	TaskTypeDependencies = "dependencies"
	TaskTypePlagiarism   = "plagiarism"
)

type Repository struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Owner       string    `json:"owner" gorm:"size:255;not null"`
	Name        string    `json:"name" gorm:"size:255;not null"`
	URL         string    `json:"url" gorm:"size:500;not null;uniqueIndex"`
	Branch      string    `json:"branch" gorm:"size:255"`
	Description string    `json:"description" gorm:"size:1000"`
	Language    string    `json:"language" gorm:"size:100"`
	Stars       int       `json:"stars" gorm:"default:0"`
	Forks       int       `json:"forks" gorm:"default:0"`
	OpenIssues  int       `json:"open_issues" gorm:"default:0"`
	PushedAt    *time.Time `json:"pushed_at"`
	Status      string    `json:"status" gorm:"size:50;default:pending"` // pending, fetching, ready, analyzing, completed, error
	ErrorMsg    string    `json:"error_msg" gorm:"size:1000"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Tasks   []AnalysisTask `json:"tasks,omitempty" gorm:"foreignKey:RepositoryID"`
	Reports []Report       `json:"reports,omitempty" gorm:"foreignKey:RepositoryID"`
}

type AnalysisTask struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	RepositoryID uint       `json:"repository_id" gorm:"index;not null"`
	TaskID       string     `json:"task_id" gorm:"size:64;uniqueIndex"` // UUID
	Type         string     `json:"type" gorm:"size:50;not null"`      // structure, quality, dependencies, plagiarism
	Title        string     `json:"title" gorm:"size:255"`
	Status       string     `json:"status" gorm:"size:50;default:pending"` // pending, queued, running, succeeded, failed, canceled
	ErrorMsg     string     `json:"error_msg" gorm:"size:2000"`
	SortOrder    int        `json:"sort_order" gorm:"default:0"`
	FileLimit    int        `json:"file_limit" gorm:"default:0"`
	StartedAt    *time.Time `json:"started_at" gorm:"column:started_at"`
	CompletedAt  *time.Time `json:"completed_at" gorm:"column:completed_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Report 单次任务的分析产物。Content 为 Markdown，Payload 为结构化 JSON（可为空）。
type Report struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	RepositoryID uint      `json:"repository_id" gorm:"index;not null"`
	TaskID       uint      `json:"task_id" gorm:"index"`
	Type         string    `json:"type" gorm:"size:50;not null"`
	Title        string    `json:"title" gorm:"size:255;not null"`
	Content      string    `json:"content" gorm:"type:text"`
	Payload      string    `json:"payload,omitempty" gorm:"type:text"`
	Version      int       `json:"version" gorm:"default:1"`
	IsLatest     bool      `json:"is_latest" gorm:"default:true;index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Finding 查重扫描命中的可疑文件
type Finding struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	RepositoryID uint      `json:"repository_id" gorm:"index;not null"`
	TaskID       uint      `json:"task_id" gorm:"index"`
	File         string    `json:"file" gorm:"size:500;not null"`
	MatchType    string    `json:"match_type" gorm:"size:100"`
	Confidence   float64   `json:"confidence"`
	Source       string    `json:"source" gorm:"size:500"`
	Snippet      string    `json:"snippet" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at"`
}

type ChatMessage struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	RepositoryID uint      `json:"repository_id" gorm:"index;not null"`
	Role         string    `json:"role" gorm:"size:20;not null"` // user, assistant
	Content      string    `json:"content" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at"`
}

// Analysis task types definition
var TaskTypes = []struct {
	Type      string
	Title     string
	SortOrder int
}{
	{TaskTypeStructure, "仓库结构分析", 1},
	{TaskTypeQuality, "代码质量分析", 2},
	{TaskTypeDependencies, "依赖关系分析", 3},
	{TaskTypePlagiarism, "相似代码检查", 4},
}

// TaskTitle 返回任务类型对应的标题，未知类型回退为类型名
func TaskTitle(taskType string) string {
	for _, t := range TaskTypes {
		if t.Type == taskType {
			return t.Title
		}
	}
	return taskType
}
