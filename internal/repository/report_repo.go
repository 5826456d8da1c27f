package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/gitlens/backend/internal/model"
)

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

// CreateVersioned 创建新版本报告，同类型旧版本标记为非最新
func (r *reportRepository) CreateVersioned(report *model.Report) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var maxVersion int
		err := tx.Model(&model.Report{}).
			Where("repository_id = ? AND type = ?", report.RepositoryID, report.Type).
			Select("COALESCE(MAX(version), 0)").
			Scan(&maxVersion).Error
		if err != nil {
			return err
		}

		if maxVersion > 0 {
			err = tx.Model(&model.Report{}).
				Where("repository_id = ? AND type = ? AND is_latest = ?", report.RepositoryID, report.Type, true).
				Update("is_latest", false).Error
			if err != nil {
				return err
			}
		}

		report.Version = maxVersion + 1
		report.IsLatest = true
		return tx.Create(report).Error
	})
}

func (r *reportRepository) GetByRepository(repoID uint) ([]model.Report, error) {
	var reports []model.Report
	err := r.db.Where("repository_id = ? AND is_latest = ?", repoID, true).
		Order("created_at ASC").Find(&reports).Error
	return reports, err
}

func (r *reportRepository) GetLatestByType(repoID uint, reportType string) (*model.Report, error) {
	var report model.Report
	err := r.db.Where("repository_id = ? AND type = ? AND is_latest = ?", repoID, reportType, true).
		First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) Get(id uint) (*model.Report, error) {
	var report model.Report
	err := r.db.First(&report, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) DeleteByRepositoryID(repoID uint) error {
	return r.db.Where("repository_id = ?", repoID).Delete(&model.Report{}).Error
}
