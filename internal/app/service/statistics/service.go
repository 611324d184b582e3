// Package statistics produces the admin payment dashboards.
package statistics

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agriev/we-sdk-payments/internal/app/service/statemachine"
	"github.com/agriev/we-sdk-payments/internal/models"
	"github.com/agriev/we-sdk-payments/pkg/types"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

type Request struct {
	// Inclusive date bounds, YYYY-MM-DD, both optional.
	DateFrom string                `json:"date_from"`
	DateTo   string                `json:"date_to"`
	Filters  []*types.CommonFilter `json:"filters"`
}

type Row struct {
	Day   string `json:"day"`
	State string `json:"state"`
	Count int64  `json:"count"`
}

// DailyByState counts payments per day and state. Initial payments carry no
// purchase yet and are excluded.
func (s *Service) DailyByState(ctx context.Context, req *Request) ([]Row, error) {
	q := s.db.WithContext(ctx).Model(&models.Payment{}).
		Select("TO_CHAR(created_at, 'YYYY-MM-DD') AS day, state, COUNT(*) AS count").
		Where("state <> ?", statemachine.StateInitial)
	if req.DateFrom != "" {
		q = q.Where("created_at >= ?", req.DateFrom)
	}
	if req.DateTo != "" {
		q = q.Where("created_at < ?::date + 1", req.DateTo)
	}
	for _, f := range req.Filters {
		q = q.Where(clause.Where{Exprs: []clause.Expression{f}})
	}

	var rows []Row
	err := q.Group("TO_CHAR(created_at, 'YYYY-MM-DD'), state").
		Order("day, state").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count payments by day: %w", err)
	}
	return rows, nil
}

var Module = fx.Options(
	fx.Provide(NewService),
)
