package payment

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/agriev/we-sdk-payments/internal/app/service/statemachine"
	"github.com/agriev/we-sdk-payments/internal/models"
)

func TestRecorderAppendAdvancesState(t *testing.T) {
	db, mock, closeFn := setupMockDB(t)
	defer closeFn()
	rec := NewRecorder(zap.NewNop().Sugar())

	p := &models.Payment{ID: 3, State: statemachine.StatePending, PlayerID: "p-1"}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "event"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectExec(`UPDATE "payment" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := db.Transaction(func(tx *gorm.DB) error {
		ev, err := rec.Append(tx, p, statemachine.EventPaid, lo.ToPtr("xsolla"), datatypes.JSON(`{"notification_type":"payment"}`))
		require.NoError(t, err)
		require.Equal(t, int64(11), ev.ID)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, statemachine.StatePaid, p.State)
	require.Equal(t, int64(11), *p.LastEventID)
	require.Equal(t, "xsolla", *p.PaymentSystem)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecorderSuppressedGuardTouchesNothing(t *testing.T) {
	db, mock, closeFn := setupMockDB(t)
	defer closeFn()
	rec := NewRecorder(zap.NewNop().Sugar())

	// A cancellation arriving after the payment already succeeded is a
	// benign race: warn and leave the log alone.
	p := &models.Payment{ID: 3, State: statemachine.StatePaid}

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := rec.Append(tx, p, statemachine.EventCanceled, lo.ToPtr("xsolla"), nil)
		return err
	})
	require.ErrorIs(t, err, statemachine.ErrGuard)
	require.Equal(t, statemachine.StatePaid, p.State)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecorderGuardFailureRecordsErrorEvent(t *testing.T) {
	db, mock, closeFn := setupMockDB(t)
	defer closeFn()
	rec := NewRecorder(zap.NewNop().Sugar())

	p := &models.Payment{ID: 3, State: statemachine.StateInitial}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "event"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))
	mock.ExpectExec(`UPDATE "payment" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var appendErr error
	err := db.Transaction(func(tx *gorm.DB) error {
		_, appendErr = rec.Append(tx, p, statemachine.EventRefunded, lo.ToPtr("ukassa"), nil)
		return nil
	})
	require.NoError(t, err)
	require.ErrorIs(t, appendErr, statemachine.ErrGuard)
	require.Equal(t, statemachine.StateError, p.State)
	require.NoError(t, mock.ExpectationsWereMet())
}
