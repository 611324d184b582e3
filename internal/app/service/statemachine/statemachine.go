// Package statemachine holds the payment lifecycle graph. It is pure state
// logic: persistence applies the result next to the event row insert inside
// one transaction.
package statemachine

import (
	"errors"
	"fmt"
)

type State string

const (
	StateInitial          State = "initial"
	StateCreated          State = "created"
	StatePending          State = "pending"
	StateCanceled         State = "canceled"
	StatePaid             State = "paid"
	StatePaymentConfirmed State = "payment_confirmed"
	StateRefunded         State = "refunded"
	StateRefundConfirmed  State = "refund_confirmed"
	StateError            State = "error"
)

// EventType is the trigger appended to a payment's event log. Each trigger
// has exactly one destination state.
type EventType string

const (
	EventCreated          EventType = "created"
	EventPending          EventType = "pending"
	EventCanceled         EventType = "canceled"
	EventPaid             EventType = "paid"
	EventPaymentConfirmed EventType = "payment_confirmed"
	EventRefunded         EventType = "refunded"
	EventRefundConfirmed  EventType = "refund_confirmed"
	EventError            EventType = "error"
)

// ErrGuard reports a trigger whose source-state guard rejected the current
// state. No state change is applied in that case.
var ErrGuard = errors.New("transition not allowed from current state")

type transition struct {
	sources []State // nil means any state
	dest    State
}

// The self-loops (pending→pending, paid→paid, ...) make webhook re-delivery
// a no-op transition instead of an error.
var table = map[EventType]transition{
	EventCreated: {sources: []State{StateInitial}, dest: StateCreated},
	EventPending: {sources: []State{StateCreated, StatePending}, dest: StatePending},
	EventCanceled: {sources: []State{StatePending}, dest: StateCanceled},
	EventPaid: {sources: []State{StateCanceled, StatePending, StatePaid}, dest: StatePaid},
	EventPaymentConfirmed: {sources: []State{StatePaid, StatePaymentConfirmed}, dest: StatePaymentConfirmed},
	EventRefunded: {sources: []State{StateCanceled, StatePending, StatePaid, StatePaymentConfirmed, StateRefunded}, dest: StateRefunded},
	EventRefundConfirmed: {sources: []State{StateRefunded, StateRefundConfirmed}, dest: StateRefundConfirmed},
	EventError: {sources: nil, dest: StateError},
}

// Next returns the destination state for trigger from current, or ErrGuard
// when the source-state guard fails.
func Next(current State, trigger EventType) (State, error) {
	t, ok := table[trigger]
	if !ok {
		return "", fmt.Errorf("unknown event type %q", trigger)
	}
	if t.sources == nil {
		return t.dest, nil
	}
	for _, s := range t.sources {
		if s == current {
			return t.dest, nil
		}
	}
	return "", fmt.Errorf("%w: %s -> %s", ErrGuard, current, trigger)
}

// Allowed reports whether trigger may fire from current.
func Allowed(current State, trigger EventType) bool {
	_, err := Next(current, trigger)
	return err == nil
}

// Dest returns the destination state of a known trigger.
func Dest(trigger EventType) State {
	return table[trigger].dest
}

// Known reports whether trigger names a defined event type.
func Known(trigger EventType) bool {
	_, ok := table[trigger]
	return ok
}

// SuppressesGuardError marks the triggers whose guard failures are swallowed
// with a warning instead of producing an error event. Cancellations and
// payments race benignly against each other under webhook re-delivery;
// recording an error event for each such race would flood the log.
func SuppressesGuardError(trigger EventType) bool {
	return trigger == EventPaid || trigger == EventCanceled
}
