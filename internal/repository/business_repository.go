package repository

import (
	"errors"
	"strings"

	"github.com/lumipos/internal/models"

	"gorm.io/gorm"
)

// BusinessRepository 商家数据访问接口
type BusinessRepository interface {
	Create(business *models.Business) error
	GetByID(id uint) (*models.Business, error)
	GetBySlug(slug string) (*models.Business, error)
	ListAll() ([]models.Business, error)
	Update(business *models.Business) error
}

// GormBusinessRepository GORM 实现
type GormBusinessRepository struct {
	db *gorm.DB
}

// NewBusinessRepository 创建商家仓库
func NewBusinessRepository(db *gorm.DB) *GormBusinessRepository {
	return &GormBusinessRepository{db: db}
}

// Create 创建商家
func (r *GormBusinessRepository) Create(business *models.Business) error {
	return r.db.Create(business).Error
}

// GetByID 根据 ID 获取商家
func (r *GormBusinessRepository) GetByID(id uint) (*models.Business, error) {
	var business models.Business
	if err := r.db.First(&business, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &business, nil
}

// GetBySlug 根据标识获取商家
func (r *GormBusinessRepository) GetBySlug(slug string) (*models.Business, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, nil
	}
	var business models.Business
	if err := r.db.Where("slug = ?", slug).First(&business).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &business, nil
}

// ListAll 返回全部商家
func (r *GormBusinessRepository) ListAll() ([]models.Business, error) {
	var businesses []models.Business
	if err := r.db.Order("id asc").Find(&businesses).Error; err != nil {
		return nil, err
	}
	return businesses, nil
}

// Update 更新商家
func (r *GormBusinessRepository) Update(business *models.Business) error {
	return r.db.Save(business).Error
}
