package builtin

import (
	"context"

	"github.com/AccelByte/extend-challenge-ledger/pkg/action"
	"github.com/AccelByte/extend-challenge-ledger/pkg/ledger"
	"github.com/sirupsen/logrus"
)

const (
	// AuditLogActionID is the identifier for the structured audit log action
	AuditLogActionID = "audit_log"
)

// AuditLogAction writes one structured log entry per event.
type AuditLogAction struct {
	config action.ActionConfig
	logger *logrus.Logger
}

// NewAuditLogAction creates an audit log action writing to logger, or to
// the standard logrus logger when logger is nil.
func NewAuditLogAction(config action.ActionConfig, logger *logrus.Logger) *AuditLogAction {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AuditLogAction{config: config, logger: logger}
}

func (a *AuditLogAction) ID() string                  { return a.config.ID }
func (a *AuditLogAction) Name() string                { return "Audit Log" }
func (a *AuditLogAction) Config() action.ActionConfig { return a.config }

// Execute logs the event.
func (a *AuditLogAction) Execute(ctx context.Context, event *ledger.Event) error {
	fields := logrus.Fields{
		"event":    string(event.Type),
		"player":   event.Player,
		"progress": event.Progress.ProgressCount,
		"at":       event.At.Unix(),
	}
	if event.Units > 0 {
		fields["units"] = event.Units
	}
	if event.Amount != nil && event.Amount.Sign() > 0 {
		fields["amount_wei"] = event.Amount.String()
	}
	if event.RewardID != "" {
		fields["reward_id"] = event.RewardID
	}
	if event.PayoutID != "" {
		fields["payout_id"] = event.PayoutID
	}

	a.logger.WithFields(fields).Info(a.config.GetParameterString("message", "challenge ledger event"))
	return nil
}

// Rollback is a no-op; log entries are not retracted.
func (a *AuditLogAction) Rollback(ctx context.Context, event *ledger.Event) error {
	return nil
}
