package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"orus-risk/internal/models"

	"gorm.io/gorm"
)

// ErrFraudCheckNotFound is returned by Get for an unknown id.
var ErrFraudCheckNotFound = errors.New("fraud check not found")

// FraudCheckRepository is the audit sink of the risk engine and the read
// side of the analytics endpoints.
type FraudCheckRepository struct {
	db *gorm.DB
}

func NewFraudCheckRepository(db *gorm.DB) *FraudCheckRepository {
	return &FraudCheckRepository{db: db}
}

// Create inserts one verdict. Rows are never updated.
func (r *FraudCheckRepository) Create(ctx context.Context, check *models.FraudCheck) error {
	if err := r.db.WithContext(ctx).Create(check).Error; err != nil {
		return fmt.Errorf("%w: create fraud check: %v", ErrDatabaseOperation, err)
	}
	return nil
}

func (r *FraudCheckRepository) Get(ctx context.Context, id string) (*models.FraudCheck, error) {
	var check models.FraudCheck
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&check).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFraudCheckNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get fraud check: %v", ErrDatabaseOperation, err)
	}
	return &check, nil
}

// List returns a page of checks, newest first, with the total match count.
func (r *FraudCheckRepository) List(ctx context.Context, filter models.FraudCheckFilter, limit, offset int) ([]models.FraudCheck, int64, error) {
	query := r.filtered(ctx, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: count fraud checks: %v", ErrDatabaseOperation, err)
	}

	checks := make([]models.FraudCheck, 0)
	err := query.Order("checked_at DESC").Limit(limit).Offset(offset).Find(&checks).Error
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list fraud checks: %v", ErrDatabaseOperation, err)
	}
	return checks, total, nil
}

// Stats summarizes checks in [from, to): totals, level distribution and a
// per-day trend.
func (r *FraudCheckRepository) Stats(ctx context.Context, from, to time.Time) (*models.FraudCheckStats, error) {
	stats := &models.FraudCheckStats{From: from, To: to}
	filter := models.FraudCheckFilter{From: from, To: to}

	row := r.filtered(ctx, filter).
		Select("COUNT(*), COALESCE(AVG(overall_score), 0), COUNT(*) FILTER (WHERE cardinality(degraded_signals) > 0)").
		Row()
	if err := row.Scan(&stats.Total, &stats.AverageScore, &stats.Degraded); err != nil {
		return nil, fmt.Errorf("%w: fraud check totals: %v", ErrDatabaseOperation, err)
	}

	stats.Distribution = make([]models.RiskLevelCount, 0, 4)
	err := r.filtered(ctx, filter).
		Select("risk_level, COUNT(*) AS count").
		Group("risk_level").
		Order("risk_level").
		Scan(&stats.Distribution).Error
	if err != nil {
		return nil, fmt.Errorf("%w: risk level distribution: %v", ErrDatabaseOperation, err)
	}

	stats.Trend = make([]models.DailyRiskTrend, 0)
	err = r.filtered(ctx, filter).
		Select("date_trunc('day', checked_at) AS day, COUNT(*) AS checks, AVG(overall_score) AS average_score, "+
			"COUNT(*) FILTER (WHERE recommendation = ?) AS blocked", "block").
		Group("day").
		Order("day").
		Scan(&stats.Trend).Error
	if err != nil {
		return nil, fmt.Errorf("%w: daily risk trend: %v", ErrDatabaseOperation, err)
	}
	return stats, nil
}

func (r *FraudCheckRepository) filtered(ctx context.Context, filter models.FraudCheckFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.FraudCheck{})
	if filter.ActorID != "" {
		query = query.Where("actor_id = ?", filter.ActorID)
	}
	if filter.RiskLevel != "" {
		query = query.Where("risk_level = ?", filter.RiskLevel)
	}
	if !filter.From.IsZero() {
		query = query.Where("checked_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("checked_at < ?", filter.To)
	}
	return query
}
