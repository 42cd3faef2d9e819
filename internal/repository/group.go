package repository

import (
	"context"
	"errors"

	"github.com/BLOSSOM1234321/aurawell-sub002/internal/models"

	"gorm.io/gorm"
)

// GroupRepository defines read operations for support groups.
type GroupRepository interface {
	GetByID(ctx context.Context, id uint) (*models.SupportGroup, error)
	GetBySlug(ctx context.Context, slug string) (*models.SupportGroup, error)
	List(ctx context.Context) ([]*models.SupportGroup, error)
}

type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository returns a new GroupRepository implementation.
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) GetByID(ctx context.Context, id uint) (*models.SupportGroup, error) {
	var group models.SupportGroup
	if err := readDB(r.db).WithContext(ctx).First(&group, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Support group", id)
		}
		return nil, err
	}
	return &group, nil
}

func (r *groupRepository) GetBySlug(ctx context.Context, slug string) (*models.SupportGroup, error) {
	var group models.SupportGroup
	if err := readDB(r.db).WithContext(ctx).Where("slug = ?", slug).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Support group", slug)
		}
		return nil, err
	}
	return &group, nil
}

func (r *groupRepository) List(ctx context.Context) ([]*models.SupportGroup, error) {
	var groups []*models.SupportGroup
	err := readDB(r.db).WithContext(ctx).Order("name ASC").Find(&groups).Error
	return groups, err
}
