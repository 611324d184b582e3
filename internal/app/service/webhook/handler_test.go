package webhook

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
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
	"github.com/agriev/we-sdk-payments/internal/app/service/webhooklog"
	"github.com/agriev/we-sdk-payments/internal/platform/ukassa"
	"github.com/agriev/we-sdk-payments/internal/platform/xsolla"
	"github.com/agriev/we-sdk-payments/pkg/config"
	"github.com/agriev/we-sdk-payments/pkg/response"
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

func newTestHandler(t *testing.T, db *gorm.DB) *Handler {
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
	return NewHandler(
		log, db,
		payment.NewRecorder(log),
		bonus.NewLedger(db, log),
		registry,
		webhooklog.New(logDB, log),
		dir,
		callback.NewNotifier(dir, log),
	)
}

func paymentRow(state string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "state", "token", "game_id", "player_id", "game_session_id", "payment_system"}).
		AddRow(int64(42), state, "tok-42", "game-1", "player-1", "sid", "ukassa")
}

func balanceRow(balance string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "player_id", "balance"}).
		AddRow(int64(1), "player-1", balance)
}

func countRows(n int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count"}).AddRow(n)
}

func TestProcessRejectsInvalidJSON(t *testing.T) {
	db, _, closeFn := setupMockDB(t)
	defer closeFn()
	h := newTestHandler(t, db)

	err := h.Process(context.Background(), "ukassa", []byte(`{"event":`))
	var fail *Error
	require.ErrorAs(t, err, &fail)
	require.Equal(t, response.ErrorCodeInvalidJSON, fail.Code)
}

func TestProcessPaidFirstDeliveryDebitsLedger(t *testing.T) {
	db, mock, closeFn := setupMockDB(t)
	defer closeFn()
	h := newTestHandler(t, db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "payment"`).WillReturnRows(paymentRow("pending"))
	mock.ExpectQuery(`SELECT \* FROM "event"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "payment_id", "type", "payment_system"}).
			AddRow(int64(2), int64(42), "pending", "ukassa"))
	mock.ExpectQuery(`SELECT \* FROM "bonus_balance"`).WillReturnRows(balanceRow("100.00"))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "event"`).WillReturnRows(countRows(0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "event"`).WillReturnRows(countRows(0))
	mock.ExpectQuery(`INSERT INTO "event"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectExec(`UPDATE "payment" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "bonus_balance" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := h.Process(context.Background(), "ukassa", []byte(ukassaSucceededFixture))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessPaidReplaySkipsEverything(t *testing.T) {
	db, mock, closeFn := setupMockDB(t)
	defer closeFn()
	h := newTestHandler(t, db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "payment"`).WillReturnRows(paymentRow("paid"))
	mock.ExpectQuery(`SELECT \* FROM "event"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "payment_id", "type", "payment_system"}).
			AddRow(int64(3), int64(42), "paid", "ukassa"))
	mock.ExpectQuery(`SELECT \* FROM "bonus_balance"`).WillReturnRows(balanceRow("90.00"))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "event"`).WillReturnRows(countRows(1))
	mock.ExpectCommit()

	// Same body a second time: one paid event, one debit, no error.
	err := h.Process(context.Background(), "ukassa", []byte(ukassaSucceededFixture))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessPaidUnknownPayment(t *testing.T) {
	db, mock, closeFn := setupMockDB(t)
	defer closeFn()
	h := newTestHandler(t, db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "payment"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	err := h.Process(context.Background(), "ukassa", []byte(ukassaSucceededFixture))
	var fail *Error
	require.ErrorAs(t, err, &fail)
	require.Equal(t, response.ErrorCodeInvalidParameter, fail.Code)
}

func TestProcessXsollaUserValidation(t *testing.T) {
	db, _, closeFn := setupMockDB(t)
	defer closeFn()
	h := newTestHandler(t, db)

	// The config directory with no token map accepts any non-empty player.
	body := `{"notification_type":"user_validation","user":{"id":"player-1"},"settings":{"project_id":12345}}`
	require.NoError(t, h.Process(context.Background(), "xsolla", []byte(body)))
}
