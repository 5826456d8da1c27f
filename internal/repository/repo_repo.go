package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/gitlens/backend/internal/model"
)

type repoRepository struct {
	db *gorm.DB
}

func NewRepoRepository(db *gorm.DB) RepoRepository {
	return &repoRepository{db: db}
}

func (r *repoRepository) Create(repo *model.Repository) error {
	return r.db.Create(repo).Error
}

func (r *repoRepository) List() ([]model.Repository, error) {
	var repos []model.Repository
	err := r.db.Order("created_at DESC").Find(&repos).Error
	return repos, err
}

// Get 查询仓库及关联的任务和报告
func (r *repoRepository) Get(id uint) (*model.Repository, error) {
	var repo model.Repository
	err := r.db.Preload("Tasks", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order ASC")
	}).Preload("Reports", "is_latest = ?", true).First(&repo, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &repo, nil
}

// GetBasic 只查询仓库本身，不加载关联
func (r *repoRepository) GetBasic(id uint) (*model.Repository, error) {
	var repo model.Repository
	err := r.db.First(&repo, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &repo, nil
}

func (r *repoRepository) GetByURL(url string) (*model.Repository, error) {
	var repo model.Repository
	err := r.db.Where("url = ?", url).First(&repo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &repo, nil
}

func (r *repoRepository) Save(repo *model.Repository) error {
	return r.db.Save(repo).Error
}

func (r *repoRepository) Delete(id uint) error {
	return r.db.Delete(&model.Repository{}, id).Error
}
