package payment

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/agriev/we-sdk-payments/internal/app/service/statemachine"
	"github.com/agriev/we-sdk-payments/internal/models"
)

// Recorder appends events to a payment's log and moves the payment to the
// event's destination state. All writes go through the caller's transaction
// so the event row and the state column can never diverge.
type Recorder struct {
	log *zap.SugaredLogger
}

func NewRecorder(log *zap.SugaredLogger) *Recorder {
	return &Recorder{log: log}
}

// Append validates the trigger against the payment's current state, inserts
// the event row and updates the payment inside tx.
//
// A guard failure on a trigger listed by statemachine.SuppressesGuardError is
// logged and returned as statemachine.ErrGuard without touching the log, so a
// redelivered or late webhook can be acknowledged without corrupting the
// payment. Any other guard failure records an error event instead and still
// returns statemachine.ErrGuard.
func (r *Recorder) Append(
	tx *gorm.DB,
	p *models.Payment,
	trigger statemachine.EventType,
	system *string,
	payload datatypes.JSON,
) (*models.Event, error) {
	next, err := statemachine.Next(p.State, trigger)
	if err != nil {
		if !errors.Is(err, statemachine.ErrGuard) {
			return nil, err
		}
		if statemachine.SuppressesGuardError(trigger) {
			r.log.Warnw("suppressed guard failure",
				"payment_id", p.ID, "state", p.State, "trigger", trigger)
			return nil, err
		}
		r.log.Errorw("guard failure, recording error event",
			"payment_id", p.ID, "state", p.State, "trigger", trigger)
		if _, recErr := r.record(tx, p, statemachine.EventError, statemachine.StateError, system, payload); recErr != nil {
			return nil, recErr
		}
		return nil, err
	}
	return r.record(tx, p, trigger, next, system, payload)
}

func (r *Recorder) record(
	tx *gorm.DB,
	p *models.Payment,
	trigger statemachine.EventType,
	dest statemachine.State,
	system *string,
	payload datatypes.JSON,
) (*models.Event, error) {
	event := &models.Event{
		PaymentID:     p.ID,
		Type:          trigger,
		PaymentSystem: system,
		Payload:       payload,
	}
	if err := tx.Create(event).Error; err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	updates := map[string]any{
		"state":         dest,
		"last_event_id": event.ID,
	}
	if system != nil && p.PaymentSystem == nil {
		updates["payment_system"] = *system
	}
	if err := tx.Model(&models.Payment{}).Where("id = ?", p.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update payment state: %w", err)
	}
	p.State = dest
	p.LastEventID = &event.ID
	if system != nil && p.PaymentSystem == nil {
		p.PaymentSystem = system
	}
	p.Events = append(p.Events, event)
	return event, nil
}
