package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jangdahyun/codingline/internal/domain"
	"github.com/jangdahyun/codingline/internal/repository"
)

// GormMemberRepository is the GORM implementation of MemberRepository.
type GormMemberRepository struct {
	db *gorm.DB
}

// NewGormMemberRepository creates a GormMemberRepository.
func NewGormMemberRepository(db *gorm.DB) *GormMemberRepository {
	if db == nil {
		panic("database connection cannot be nil for GormMemberRepository")
	}
	return &GormMemberRepository{db: db}
}

func (r *GormMemberRepository) Find(ctx context.Context, roomID, userID uint) (*domain.RoomMember, error) {
	var member domain.RoomMember
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrMemberNotFound
		}
		return nil, fmt.Errorf("gorm: find member (room %d, user %d): %w", roomID, userID, err)
	}
	return &member, nil
}

func (r *GormMemberRepository) FindForUpdate(ctx context.Context, roomID, userID uint) (*domain.RoomMember, error) {
	var member domain.RoomMember
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrMemberNotFound
		}
		return nil, fmt.Errorf("gorm: lock member (room %d, user %d): %w", roomID, userID, err)
	}
	return &member, nil
}

// GetOrCreateForUpdate locks the (room, user) membership, inserting it
// first when absent. A concurrent insert of the same pair loses on the
// unique constraint, in which case the row is re-read under lock.
func (r *GormMemberRepository) GetOrCreateForUpdate(ctx context.Context, roomID, userID uint, role string) (*domain.RoomMember, bool, error) {
	member, err := r.FindForUpdate(ctx, roomID, userID)
	if err == nil {
		return member, false, nil
	}
	if !errors.Is(err, repository.ErrMemberNotFound) {
		return nil, false, err
	}

	fresh := &domain.RoomMember{
		RoomID:       roomID,
		UserID:       userID,
		Role:         role,
		LastActiveAt: time.Now(),
	}
	if createErr := r.db.WithContext(ctx).Create(fresh).Error; createErr != nil {
		if mapDuplicate(createErr) {
			// Lost the insert race; the winner's row is what we lock.
			member, retryErr := r.FindForUpdate(ctx, roomID, userID)
			if retryErr != nil {
				return nil, false, retryErr
			}
			return member, false, nil
		}
		return nil, false, fmt.Errorf("gorm: create member (room %d, user %d): %w", roomID, userID, createErr)
	}
	return fresh, true, nil
}

func (r *GormMemberRepository) Save(ctx context.Context, member *domain.RoomMember) error {
	if err := r.db.WithContext(ctx).Save(member).Error; err != nil {
		return fmt.Errorf("gorm: save member (room %d, user %d): %w", member.RoomID, member.UserID, err)
	}
	return nil
}

func (r *GormMemberRepository) Delete(ctx context.Context, member *domain.RoomMember) error {
	if err := r.db.WithContext(ctx).Delete(&domain.RoomMember{}, member.ID).Error; err != nil {
		return fmt.Errorf("gorm: delete member %d (room %d, user %d): %w", member.ID, member.RoomID, member.UserID, err)
	}
	return nil
}

func (r *GormMemberRepository) CountActive(ctx context.Context, roomID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.RoomMember{}).
		Where("room_id = ? AND is_banned = ? AND open_conn > 0", roomID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: count active members of room %d: %w", roomID, err)
	}
	return count, nil
}

func (r *GormMemberRepository) CountPresent(ctx context.Context, roomID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.RoomMember{}).
		Where("room_id = ? AND is_banned = ?", roomID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: count present members of room %d: %w", roomID, err)
	}
	return count, nil
}

func (r *GormMemberRepository) CountOwners(ctx context.Context, roomID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.RoomMember{}).
		Where("room_id = ? AND role = ?", roomID, domain.RoleOwner).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: count owners of room %d: %w", roomID, err)
	}
	return count, nil
}

// EarliestEligibleForUpdate orders by joined_at then id so that two
// concurrent ownership transfers resolve to the same successor.
func (r *GormMemberRepository) EarliestEligibleForUpdate(ctx context.Context, roomID, excludeUserID uint) (*domain.RoomMember, error) {
	var member domain.RoomMember
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("room_id = ? AND user_id <> ? AND is_banned = ?", roomID, excludeUserID, false).
		Order("joined_at ASC, id ASC").
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrMemberNotFound
		}
		return nil, fmt.Errorf("gorm: find successor for room %d: %w", roomID, err)
	}
	return &member, nil
}
