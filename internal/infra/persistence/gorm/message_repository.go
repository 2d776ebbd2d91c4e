package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jangdahyun/codingline/internal/domain"
	"github.com/jangdahyun/codingline/internal/repository"
)

// GormMessageRepository is the GORM implementation of MessageRepository.
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a GormMessageRepository.
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	if db == nil {
		panic("database connection cannot be nil for GormMessageRepository")
	}
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Save(ctx context.Context, msg *domain.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("gorm: save message (room %d, user %d): %w", msg.RoomID, msg.UserID, err)
	}
	return nil
}

func (r *GormMessageRepository) FindInRoom(ctx context.Context, roomID, messageID uint) (*domain.Message, error) {
	var msg domain.Message
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND id = ?", roomID, messageID).
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrMessageNotFound
		}
		return nil, fmt.Errorf("gorm: find message %d in room %d: %w", messageID, roomID, err)
	}
	return &msg, nil
}

func (r *GormMessageRepository) ListPage(ctx context.Context, roomID uint, offset, limit int) ([]domain.Message, int64, error) {
	var total int64
	db := r.db.WithContext(ctx).Model(&domain.Message{}).Where("room_id = ?", roomID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("gorm: count messages of room %d: %w", roomID, err)
	}

	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, 0, fmt.Errorf("gorm: list messages of room %d: %w", roomID, err)
	}
	return messages, total, nil
}

func (r *GormMessageRepository) Delete(ctx context.Context, msg *domain.Message) error {
	if err := r.db.WithContext(ctx).Delete(&domain.Message{}, msg.ID).Error; err != nil {
		return fmt.Errorf("gorm: delete message %d: %w", msg.ID, err)
	}
	return nil
}
