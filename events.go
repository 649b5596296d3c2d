package payments

import (
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
)

// TransferredEvent is emitted once per finalized settlement.
type TransferredEvent struct {
	Operator      common.Address
	ID            IntentID
	Recipient     common.Address
	Payer         common.Address
	AmountSpent   string
	CurrencySpent Currency
}

// OperatorRegisteredEvent is emitted when an operator sets a fee destination.
type OperatorRegisteredEvent struct {
	Operator       common.Address
	FeeDestination common.Address
}

// OperatorUnregisteredEvent is emitted when an operator removes its entry.
type OperatorUnregisteredEvent struct {
	Operator common.Address
}

// EventSink receives settlement and registry events. Implementations must not
// call back into the engine's settlement entry points.
type EventSink interface {
	Transferred(ev TransferredEvent)
	OperatorRegistered(ev OperatorRegisteredEvent)
	OperatorUnregistered(ev OperatorUnregisteredEvent)
}

// LogSink is an EventSink that logs events through slog. It is the default
// sink when none is configured.
type LogSink struct {
	Logger *slog.Logger
}

func (s *LogSink) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Transferred implements EventSink.
func (s *LogSink) Transferred(ev TransferredEvent) {
	s.logger().Info("transferred",
		"operator", ev.Operator.Hex(),
		"id", ev.ID.Hex(),
		"recipient", ev.Recipient.Hex(),
		"payer", ev.Payer.Hex(),
		"amountSpent", ev.AmountSpent,
		"currencySpent", ev.CurrencySpent.String(),
	)
}

// OperatorRegistered implements EventSink.
func (s *LogSink) OperatorRegistered(ev OperatorRegisteredEvent) {
	s.logger().Info("operator registered",
		"operator", ev.Operator.Hex(),
		"feeDestination", ev.FeeDestination.Hex(),
	)
}

// OperatorUnregistered implements EventSink.
func (s *LogSink) OperatorUnregistered(ev OperatorUnregisteredEvent) {
	s.logger().Info("operator unregistered", "operator", ev.Operator.Hex())
}
