package sync

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/agriev/we-sdk-payments/internal/app/service/bonus"
	"github.com/agriev/we-sdk-payments/internal/app/service/callback"
	"github.com/agriev/we-sdk-payments/internal/app/service/directory"
	"github.com/agriev/we-sdk-payments/internal/app/service/gateway"
	"github.com/agriev/we-sdk-payments/internal/app/service/payment"
	"github.com/agriev/we-sdk-payments/internal/app/service/statemachine"
	"github.com/agriev/we-sdk-payments/internal/app/service/webhook"
	"github.com/agriev/we-sdk-payments/internal/app/service/webhooklog"
	"github.com/agriev/we-sdk-payments/internal/models"
	"github.com/agriev/we-sdk-payments/internal/platform/ukassa"
	"github.com/agriev/we-sdk-payments/internal/platform/xsolla"
	"github.com/agriev/we-sdk-payments/pkg/config"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	return gormDB, mock, func() { _ = db.Close() }
}

func newReplayHandler(t *testing.T, db *gorm.DB) *webhook.Handler {
	log := zap.NewNop().Sugar()
	cfg := &config.Config{}
	registry := gateway.NewRegistry(
		gateway.NewXsolla(xsolla.NewClient(cfg, log), log),
		gateway.NewUkassa(ukassa.NewClient(cfg, log), log),
	)
	dir := directory.New(cfg)
	// The audit log writes asynchronously; give it its own throwaway mock so
	// its inserts never race the expectations under test.
	logDB, _, _ := setupMockDB(t)
	return webhook.NewHandler(
		log, db,
		payment.NewRecorder(log),
		bonus.NewLedger(db, log),
		registry,
		webhooklog.New(logDB, log),
		dir,
		callback.NewNotifier(dir, log),
	)
}

func pendingXsollaPayment(discount string) *models.Payment {
	return &models.Payment{
		ID:       42,
		State:    statemachine.StatePending,
		GameID:   "game-1",
		PlayerID: "player-1",
		Events: []*models.Event{
			{
				PaymentID:     42,
				Type:          statemachine.EventPending,
				PaymentSystem: lo.ToPtr("xsolla"),
				Payload:       []byte(`{"token":"xt-42","system":"xsolla","discount":"` + discount + `"}`),
			},
		},
	}
}

func TestXsollaStoredDiscount(t *testing.T) {
	x := &xsollaBase{log: zap.NewNop().Sugar()}

	d := x.storedDiscount(pendingXsollaPayment("10.00"))
	require.Equal(t, "10.00", d.StringFixed(2))

	require.True(t, x.storedDiscount(&models.Payment{ID: 5}).IsZero())
}

func TestXsollaApplyReplaysStoredDiscount(t *testing.T) {
	db, mock, closeFn := setupMockDB(t)
	defer closeFn()
	x := newXsollaPayment(nil, newReplayHandler(t, db), nil, zap.NewNop().Sugar())

	p := pendingXsollaPayment("10.00")
	res := json.RawMessage(`{
		"transaction": {"id": 9000001, "external_id": "42", "status": "done"},
		"purchase": {"checkout": {"currency": "RUB", "amount": 90.30}},
		"user": {"id": "player-1"}
	}`)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "payment"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "state", "token", "game_id", "player_id", "game_session_id", "payment_system"}).
			AddRow(int64(42), "pending", "tok-42", "game-1", "player-1", "sid", "xsolla"))
	mock.ExpectQuery(`SELECT \* FROM "event"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "payment_id", "type", "payment_system"}).
			AddRow(int64(2), int64(42), "pending", "xsolla"))
	mock.ExpectQuery(`SELECT \* FROM "bonus_balance"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "player_id", "balance"}).
			AddRow(int64(1), "player-1", "100.00"))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "event"`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "event"`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(`INSERT INTO "event"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectExec(`UPDATE "payment" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	// The whole point of replaying through the shared pipeline: the stored
	// discount reaches the ledger exactly as a live webhook's would.
	mock.ExpectExec(`UPDATE "bonus_balance" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, x.Apply(context.Background(), p, res))
	require.NoError(t, mock.ExpectationsWereMet())
}
