package postgres

import (
	"context"

	"github.com/yoockh/texttalk/internal/models"
	"gorm.io/gorm"
)

type ConversionRepo interface {
	ListByOwner(ctx context.Context, ownerID string) ([]models.Conversion, error)
	DeleteOwned(ctx context.Context, ownerID, id string) error
}

type conversionRepo struct {
	db *gorm.DB
}

func NewConversionRepo(db *gorm.DB) ConversionRepo {
	return &conversionRepo{db: db}
}

func (r *conversionRepo) ListByOwner(ctx context.Context, ownerID string) ([]models.Conversion, error) {
	var rows []models.Conversion
	err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *conversionRepo) DeleteOwned(ctx context.Context, ownerID, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		Delete(&models.Conversion{}).Error
}
