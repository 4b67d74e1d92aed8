package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"orus-risk/internal/models"
	"orus-risk/internal/utils/validation"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BlacklistRepository stores administrator IP blocks. The risk engine reads
// it on every reputation lookup.
type BlacklistRepository struct {
	db *gorm.DB
}

func NewBlacklistRepository(db *gorm.DB) *BlacklistRepository {
	return &BlacklistRepository{db: db}
}

// Add inserts or refreshes an entry. Adding an address twice updates its
// reason and author.
func (r *BlacklistRepository) Add(ctx context.Context, ip, reason, addedBy string) (*models.BlacklistEntry, error) {
	if !validation.IsIP(ip) {
		return nil, fmt.Errorf("%w: invalid ip address %q", ErrInvalidBlacklistEntry, ip)
	}
	if addedBy == "" {
		return nil, fmt.Errorf("%w: added_by is required", ErrInvalidBlacklistEntry)
	}

	entry := &models.BlacklistEntry{
		IPAddress: validation.NormalizeIP(ip),
		Reason:    reason,
		AddedBy:   addedBy,
		AddedAt:   time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ip_address"}},
		DoUpdates: clause.AssignmentColumns([]string{"reason", "added_by", "updated_at"}),
	}).Create(entry).Error
	if err != nil {
		return nil, fmt.Errorf("%w: add blacklist entry: %v", ErrDatabaseOperation, err)
	}
	return r.Get(ctx, entry.IPAddress)
}

func (r *BlacklistRepository) Remove(ctx context.Context, ip string) error {
	result := r.db.WithContext(ctx).
		Where("ip_address = ?", validation.NormalizeIP(ip)).
		Delete(&models.BlacklistEntry{})
	if result.Error != nil {
		return fmt.Errorf("%w: remove blacklist entry: %v", ErrDatabaseOperation, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrBlacklistEntryNotFound
	}
	return nil
}

func (r *BlacklistRepository) Get(ctx context.Context, ip string) (*models.BlacklistEntry, error) {
	var entry models.BlacklistEntry
	err := r.db.WithContext(ctx).Where("ip_address = ?", validation.NormalizeIP(ip)).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBlacklistEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get blacklist entry: %v", ErrDatabaseOperation, err)
	}
	return &entry, nil
}

// List returns a page of entries, most recent first, with the total count.
func (r *BlacklistRepository) List(ctx context.Context, limit, offset int) ([]models.BlacklistEntry, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.BlacklistEntry{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: count blacklist: %v", ErrDatabaseOperation, err)
	}
	entries := make([]models.BlacklistEntry, 0)
	err := r.db.WithContext(ctx).Order("added_at DESC").Limit(limit).Offset(offset).Find(&entries).Error
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list blacklist: %v", ErrDatabaseOperation, err)
	}
	return entries, total, nil
}

// IsBlacklisted implements the risk engine's blacklist check.
func (r *BlacklistRepository) IsBlacklisted(ctx context.Context, ip string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.BlacklistEntry{}).
		Where("ip_address = ?", validation.NormalizeIP(ip)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("%w: blacklist lookup: %v", ErrDatabaseOperation, err)
	}
	return count > 0, nil
}
