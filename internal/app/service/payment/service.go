package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agriev/we-sdk-payments/internal/app/service/bonus"
	"github.com/agriev/we-sdk-payments/internal/app/service/directory"
	"github.com/agriev/we-sdk-payments/internal/app/service/gateway"
	"github.com/agriev/we-sdk-payments/internal/app/service/statemachine"
	"github.com/agriev/we-sdk-payments/internal/models"
	"github.com/agriev/we-sdk-payments/pkg/tool"
	"github.com/agriev/we-sdk-payments/pkg/types"
)

const listPageSize = 20

type Service struct {
	log      *zap.SugaredLogger
	db       *gorm.DB
	recorder *Recorder
	gateways *gateway.Registry
	ledger   *bonus.Ledger
	dir      directory.Directory
}

func NewService(
	log *zap.SugaredLogger,
	db *gorm.DB,
	recorder *Recorder,
	gateways *gateway.Registry,
	ledger *bonus.Ledger,
	dir directory.Directory,
) Manager {
	return &Service{log: log, db: db, recorder: recorder, gateways: gateways, ledger: ledger, dir: dir}
}

// createdPayload is the slice of the issue request persisted in the created
// event and read back at redeem time.
type createdPayload struct {
	DebugMode bool           `json:"debug_mode"`
	Purchase  types.Purchase `json:"purchase"`
}

func (s *Service) IssueToken(ctx context.Context, req *IssueTokenRequest) (*IssueTokenResponse, error) {
	ok, err := s.dir.PlayerExists(ctx, req.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("check player: %w", err)
	}
	if !ok {
		return nil, ErrUnknownPlayer
	}
	if !req.Purchase.Total().Equal(req.Purchase.Amount) {
		return nil, ErrAmountMismatch
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal purchase payload: %w", err)
	}

	p := &models.Payment{
		State:         statemachine.StateInitial,
		Token:         tool.GeneratePaymentToken(),
		GameID:        req.GameID,
		PlayerID:      req.PlayerID,
		GameSessionID: req.GameSessionID,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		_, err := s.recorder.Append(tx, p, statemachine.EventCreated, nil, datatypes.JSON(payload))
		return err
	})
	if err != nil {
		return nil, err
	}
	return &IssueTokenResponse{TransactionID: p.ID, Token: p.Token}, nil
}

func (s *Service) Redeem(ctx context.Context, req *RedeemRequest) (*RedeemResponse, error) {
	system := types.PaymentSystem(req.PaymentSystem)
	if !system.Valid() {
		return nil, ErrUnknownSystem
	}
	adapter, ok := s.gateways.Get(req.PaymentSystem)
	if !ok {
		return nil, ErrUnknownSystem
	}

	var p models.Payment
	err := s.db.WithContext(ctx).Preload("Events").Where("token = ?", req.Token).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load payment by token: %w", err)
	}
	if p.PlayerID != req.PlayerID {
		return nil, ErrPlayerMismatch
	}

	// A session already created for this (payment, gateway) pair is returned
	// as-is. The gateway must never see two checkout sessions for one payment.
	if prev := p.FindEvent(statemachine.EventPending, req.PaymentSystem); prev != nil {
		var desc gateway.SessionDescriptor
		if err := json.Unmarshal(prev.Payload, &desc); err != nil {
			return nil, fmt.Errorf("decode stored session: %w", err)
		}
		return &RedeemResponse{Token: desc.Token, System: desc.System}, nil
	}

	project, err := s.Project(ctx, system, p.GameID)
	if err != nil {
		return nil, err
	}

	created := p.FindEvent(statemachine.EventCreated, "")
	if created == nil {
		return nil, ErrNotFound
	}
	var purchase createdPayload
	if err := json.Unmarshal(created.Payload, &purchase); err != nil {
		return nil, fmt.Errorf("decode purchase payload: %w", err)
	}

	balance, err := s.ledger.Balance(ctx, p.PlayerID)
	if err != nil {
		return nil, err
	}

	// The gateway call stays outside the transaction; no DB lock is held
	// across the network round trip.
	desc, err := adapter.CreateSession(ctx, project, &gateway.SessionRequest{
		Payment:      &p,
		Purchase:     &purchase.Purchase,
		Debug:        purchase.DebugMode,
		BonusBalance: balance,
	})
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(desc)
	if err != nil {
		return nil, fmt.Errorf("marshal session payload: %w", err)
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := s.recorder.Append(tx, &p, statemachine.EventPending, lo.ToPtr(req.PaymentSystem), datatypes.JSON(payload))
		return err
	})
	if errors.Is(err, statemachine.ErrGuard) {
		return nil, ErrInvalidState
	}
	if err != nil {
		return nil, err
	}
	return &RedeemResponse{Token: desc.Token, System: desc.System}, nil
}

func (s *Service) Get(ctx context.Context, gameID string, transactionID int64) (*models.Payment, error) {
	var p models.Payment
	err := s.db.WithContext(ctx).
		Where("id = ? AND game_id = ? AND state <> ?", transactionID, gameID, statemachine.StateInitial).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}
	return &p, nil
}

func (s *Service) GetByToken(ctx context.Context, token string) (*models.Payment, error) {
	var p models.Payment
	err := s.db.WithContext(ctx).
		Where("token = ? AND state <> ?", token, statemachine.StateInitial).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load payment by token: %w", err)
	}
	return &p, nil
}

func (s *Service) listQuery(ctx context.Context, req *ListRequest) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("game_id = ? AND state <> ?", req.GameID, statemachine.StateInitial)
	if req.PlayerID != "" {
		q = q.Where("player_id = ?", req.PlayerID)
	}
	if req.GameSessionID != "" {
		q = q.Where("game_session_id = ?", req.GameSessionID)
	}
	if req.TransactionID != nil {
		q = q.Where("id = ?", *req.TransactionID)
	}
	if req.State != "" {
		q = q.Where("state = ?", req.State)
	}
	return q
}

func (s *Service) listPage(ctx context.Context, req *ListRequest) (int64, []*models.Payment, error) {
	q := s.listQuery(ctx, req)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, fmt.Errorf("count payments: %w", err)
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	var rows []*models.Payment
	err := q.Order("id DESC").
		Limit(listPageSize).
		Offset((page - 1) * listPageSize).
		Find(&rows).Error
	if err != nil {
		return 0, nil, fmt.Errorf("list payments: %w", err)
	}
	return total, rows, nil
}

func (s *Service) List(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	total, rows, err := s.listPage(ctx, req)
	if err != nil {
		return nil, err
	}
	return &ListResponse{
		Count:   total,
		Results: lo.Map(rows, func(p *models.Payment, _ int) *View { return NewView(p) }),
	}, nil
}

func (s *Service) Filter(ctx context.Context, req *ListRequest) (*FilterResponse, error) {
	total, rows, err := s.listPage(ctx, req)
	if err != nil {
		return nil, err
	}
	page := req.Page
	if page < 1 {
		page = 1
	}
	res := &FilterResponse{
		Count:   total,
		Results: lo.Map(rows, func(p *models.Payment, _ int) *View { return NewView(p) }),
	}
	if int64(page*listPageSize) < total {
		res.Next = &PageToken{Page: page + 1}
	}
	if page > 1 {
		res.Previous = &PageToken{Page: page - 1}
	}
	return res, nil
}

func (s *Service) UpdateState(ctx context.Context, gameID string, transactionID int64, target statemachine.EventType) (*models.Payment, error) {
	if target != statemachine.EventPaymentConfirmed && target != statemachine.EventRefundConfirmed {
		return nil, ErrInvalidState
	}
	p, err := s.Get(ctx, gameID, transactionID)
	if err != nil {
		return nil, err
	}
	// Validated up front so an illegal developer confirmation is rejected
	// without writing an error event.
	if !statemachine.Allowed(p.State, target) {
		return nil, ErrInvalidState
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := s.recorder.Append(tx, p, target, p.PaymentSystem, nil)
		return err
	})
	if errors.Is(err, statemachine.ErrGuard) {
		return nil, ErrInvalidState
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) FindByID(ctx context.Context, id int64) (*models.Payment, error) {
	var p models.Payment
	err := s.db.WithContext(ctx).Preload("Events").Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}
	return &p, nil
}

// filtersAnd combines operator filters into a single clause expression.
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

// ScanPayments implements the admin listing with operator filters.
func (s *Service) ScanPayments(ctx context.Context, req *ScanPaymentsRequest) (*ScanPaymentsResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.Payment{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count payments: %w", err)
	}

	var rows []*models.Payment

	q := tx.Limit(req.Size)

	if req.From > 0 {
		q = q.Offset(req.From)
	}

	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	return &ScanPaymentsResponse{Items: rows, Total: total}, nil
}

func (s *Service) LoadForSync(ctx context.Context, ids []int64) ([]*models.Payment, error) {
	var rows []*models.Payment
	err := s.db.WithContext(ctx).Preload("Events").
		Where("id IN ? AND state <> ?", ids, statemachine.StateInitial).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load payments for sync: %w", err)
	}
	return rows, nil
}

func (s *Service) Project(ctx context.Context, system types.PaymentSystem, gameID string) (*models.PaymentProject, error) {
	var project models.PaymentProject
	err := s.db.WithContext(ctx).
		Where("payment_system = ? AND game_id = ?", system, gameID).
		First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load payment project: %w", err)
	}
	return &project, nil
}

func (s *Service) ProjectByProjectID(ctx context.Context, system types.PaymentSystem, projectID string) (*models.PaymentProject, error) {
	var project models.PaymentProject
	err := s.db.WithContext(ctx).
		Where("payment_system = ? AND project_id = ?", system, projectID).
		First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load payment project: %w", err)
	}
	return &project, nil
}
