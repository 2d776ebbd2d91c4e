package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jangdahyun/codingline/internal/domain"
	"github.com/jangdahyun/codingline/internal/repository"
)

// GormRoomRepository is the GORM implementation of RoomRepository.
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository creates a GormRoomRepository.
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRoomRepository")
	}
	return &GormRoomRepository{db: db}
}

func (r *GormRoomRepository) FindByID(ctx context.Context, id uint) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).First(&room, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by id %d: %w", id, err)
	}
	return &room, nil
}

func (r *GormRoomRepository) FindBySlug(ctx context.Context, slug string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by slug '%s': %w", slug, err)
	}
	return &room, nil
}

func (r *GormRoomRepository) FindByIDForUpdate(ctx context.Context, id uint) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&room, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: lock room %d: %w", id, err)
	}
	return &room, nil
}

func (r *GormRoomRepository) FindBySlugForUpdate(ctx context.Context, slug string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("slug = ?", slug).
		First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: lock room by slug '%s': %w", slug, err)
	}
	return &room, nil
}

func (r *GormRoomRepository) Save(ctx context.Context, room *domain.Room) error {
	err := r.db.WithContext(ctx).Save(room).Error
	if err != nil {
		if mapDuplicate(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save room (id: %d, slug: %s): %w", room.ID, room.Slug, err)
	}
	return nil
}

// Delete removes the room and its dependent rows. The dependents go first
// so a mid-transaction failure never leaves orphaned memberships pointing
// at a missing room.
func (r *GormRoomRepository) Delete(ctx context.Context, room *domain.Room) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("room_id = ?", room.ID).Delete(&domain.Message{}).Error; err != nil {
		return fmt.Errorf("gorm: delete messages of room %d: %w", room.ID, err)
	}
	if err := db.Where("room_id = ?", room.ID).Delete(&domain.RoomMember{}).Error; err != nil {
		return fmt.Errorf("gorm: delete memberships of room %d: %w", room.ID, err)
	}
	if err := db.Delete(&domain.Room{}, room.ID).Error; err != nil {
		return fmt.Errorf("gorm: delete room %d: %w", room.ID, err)
	}
	return nil
}

func (r *GormRoomRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Room{}).Where("slug = ?", slug).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("gorm: count rooms by slug '%s': %w", slug, err)
	}
	return count > 0, nil
}

func (r *GormRoomRepository) Search(ctx context.Context, query string) ([]domain.Room, error) {
	var rooms []domain.Room
	db := r.db.WithContext(ctx).Model(&domain.Room{}).Order("created_at DESC")
	if query != "" {
		pattern := "%" + query + "%"
		db = db.Where("title LIKE ? OR topic LIKE ?", pattern, pattern)
	}
	if err := db.Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("gorm: search rooms (q: '%s'): %w", query, err)
	}
	return rooms, nil
}
