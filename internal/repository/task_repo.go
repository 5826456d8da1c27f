package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/gitlens/backend/internal/model"
)

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(task *model.AnalysisTask) error {
	return r.db.Create(task).Error
}

func (r *taskRepository) GetByRepository(repoID uint) ([]model.AnalysisTask, error) {
	var tasks []model.AnalysisTask
	err := r.db.Where("repository_id = ?", repoID).Order("sort_order ASC").Find(&tasks).Error
	return tasks, err
}

func (r *taskRepository) Get(id uint) (*model.AnalysisTask, error) {
	var task model.AnalysisTask
	err := r.db.First(&task, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) Save(task *model.AnalysisTask) error {
	return r.db.Save(task).Error
}

// CleanupStuckTasks 将超时未完成的 running 任务标记为失败
func (r *taskRepository) CleanupStuckTasks(timeout time.Duration) (int64, error) {
	cutoff := time.Now().Add(-timeout)
	result := r.db.Model(&model.AnalysisTask{}).
		Where("status = ? AND updated_at < ?", model.TaskStatusRunning, cutoff).
		Updates(map[string]interface{}{
			"status":    model.TaskStatusFailed,
			"error_msg": "task timed out",
		})
	return result.RowsAffected, result.Error
}

func (r *taskRepository) DeleteByRepositoryID(repoID uint) error {
	return r.db.Where("repository_id = ?", repoID).Delete(&model.AnalysisTask{}).Error
}

func (r *taskRepository) Delete(id uint) error {
	return r.db.Delete(&model.AnalysisTask{}, id).Error
}

// GetTaskStats 按状态统计某仓库下的任务数量
func (r *taskRepository) GetTaskStats(repoID uint) (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := r.db.Model(&model.AnalysisTask{}).
		Select("status, count(*) as count").
		Where("repository_id = ?", repoID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	stats := make(map[string]int64, len(rows))
	for _, x := range rows {
		stats[x.Status] = x.Count
	}
	return stats, nil
}
