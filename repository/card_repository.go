package repository

import (
	"context"
	"errors"

	"msgcard/model"

	"gorm.io/gorm"
)

// CardRepository 贺卡数据访问接口
type CardRepository interface {
	Create(ctx context.Context, card *model.Card) error
	// GetByID 记录不存在时返回 nil, nil
	GetByID(ctx context.Context, id string) (*model.Card, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*model.Card, error)
	Delete(ctx context.Context, id string) error
}

// gormCardRepository GORM 实现（MySQL）
type gormCardRepository struct {
	db *gorm.DB
}

// NewGormCardRepository 创建 GORM 贺卡仓库
func NewGormCardRepository(db *gorm.DB) CardRepository {
	return &gormCardRepository{db: db}
}

// Create 创建贺卡
func (r *gormCardRepository) Create(ctx context.Context, card *model.Card) error {
	return r.db.WithContext(ctx).Create(card).Error
}

// GetByID 根据ID获取贺卡
func (r *gormCardRepository) GetByID(ctx context.Context, id string) (*model.Card, error) {
	var card model.Card
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &card, nil
}

// ExistsByID 检查贺卡ID是否存在
func (r *gormCardRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Card{}).
		Where("id = ?", id).
		Count(&count).Error
	return count > 0, err
}

// List 按创建时间倒序分页
func (r *gormCardRepository) List(ctx context.Context, limit, offset int) ([]*model.Card, error) {
	var cards []*model.Card
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&cards).Error
	return cards, err
}

// Delete 删除贺卡
func (r *gormCardRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Card{}).Error
}
