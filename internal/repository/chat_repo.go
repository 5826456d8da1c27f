package repository

import (
	"gorm.io/gorm"

	"github.com/gitlens/backend/internal/model"
)

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) Append(msg *model.ChatMessage) error {
	return r.db.Create(msg).Error
}

func (r *chatRepository) History(repoID uint) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	err := r.db.Where("repository_id = ?", repoID).Order("id ASC").Find(&msgs).Error
	return msgs, err
}

// Recent 返回最近 limit 条消息，按时间正序排列
func (r *chatRepository) Recent(repoID uint, limit int) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	err := r.db.Where("repository_id = ?", repoID).Order("id DESC").Limit(limit).Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *chatRepository) DeleteByRepositoryID(repoID uint) error {
	return r.db.Where("repository_id = ?", repoID).Delete(&model.ChatMessage{}).Error
}
