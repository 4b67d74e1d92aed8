package repositories

import (
	"context"
	"fmt"

	"orus-risk/internal/models"

	"gorm.io/gorm"
)

// TransactionRepository reads actor history for the behavior analyzer.
type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// GetRecentTransactions returns up to limit rows for the actor, newest
// first. An unknown actor yields an empty slice.
func (r *TransactionRepository) GetRecentTransactions(ctx context.Context, actorID string, limit int) ([]models.Transaction, error) {
	transactions := make([]models.Transaction, 0)
	err := r.db.WithContext(ctx).
		Where("actor_id = ?", actorID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&transactions).Error
	if err != nil {
		return nil, fmt.Errorf("%w: recent transactions: %v", ErrDatabaseOperation, err)
	}
	return transactions, nil
}

func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		return fmt.Errorf("%w: create transaction: %v", ErrDatabaseOperation, err)
	}
	return nil
}
