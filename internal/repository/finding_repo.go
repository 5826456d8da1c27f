package repository

import (
	"gorm.io/gorm"

	"github.com/gitlens/backend/internal/model"
)

type findingRepository struct {
	db *gorm.DB
}

func NewFindingRepository(db *gorm.DB) FindingRepository {
	return &findingRepository{db: db}
}

func (r *findingRepository) CreateBatch(findings []model.Finding) error {
	if len(findings) == 0 {
		return nil
	}
	return r.db.Create(&findings).Error
}

func (r *findingRepository) GetByRepository(repoID uint) ([]model.Finding, error) {
	var findings []model.Finding
	err := r.db.Where("repository_id = ?", repoID).
		Order("confidence DESC").Find(&findings).Error
	return findings, err
}

func (r *findingRepository) DeleteByRepositoryID(repoID uint) error {
	return r.db.Where("repository_id = ?", repoID).Delete(&model.Finding{}).Error
}
