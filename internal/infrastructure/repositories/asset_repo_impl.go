package repositories

import (
	"context"
	"errors"

	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"chatpay.backend/internal/domain/entities"
	domainerrors "chatpay.backend/internal/domain/errors"
	"chatpay.backend/internal/infrastructure/models"
)

// AssetRepository implements read access to the supported-asset registry
type AssetRepository struct {
	db *gorm.DB
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *gorm.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

func assetToEntity(m *models.Asset) *entities.Asset {
	return &entities.Asset{
		ID:              m.ID,
		Symbol:          m.Symbol,
		Name:            m.Name,
		Decimals:        m.Decimals,
		ContractAddress: null.StringFromPtr(m.ContractAddress),
		IsNative:        m.IsNative,
		IsActive:        m.IsActive,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// GetBySymbol gets an asset by symbol
func (r *AssetRepository) GetBySymbol(ctx context.Context, symbol string) (*entities.Asset, error) {
	var m models.Asset
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).First(&m, "symbol = ?", symbol).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return assetToEntity(&m), nil
}

// List returns all registered assets
func (r *AssetRepository) List(ctx context.Context) ([]*entities.Asset, error) {
	var rows []models.Asset
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Order("symbol ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	assets := make([]*entities.Asset, 0, len(rows))
	for i := range rows {
		assets = append(assets, assetToEntity(&rows[i]))
	}
	return assets, nil
}
