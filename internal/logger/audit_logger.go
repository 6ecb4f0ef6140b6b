// Package logger provides audit logging.
package logger

import (
	"github.com/sirupsen/logrus"

	"github.com/yourusername/cross-book/internal/models"
)

// AuditLogger provides a dedicated audit trail of every order action the bot
// takes or suppresses, keyed for later reconciliation against exchange
// statements.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogOrderAction logs one order action against an exchange.
func (al *AuditLogger) LogOrderAction(action, strategyName string, o *models.Order, practice bool) {
	fields := logrus.Fields{
		"action":       action,
		"order_id":     o.ID,
		"ref":          o.Ref,
		"exchange":     o.ExchangeID.String(),
		"market_id":    o.MarketID,
		"selection_id": o.SelectionID,
		"side":         o.Side.String(),
		"price":        o.Price,
		"stake":        o.Stake,
		"status":       o.Status.String(),
		"practice":     practice,
	}
	if strategyName != "" {
		fields["strategy"] = strategyName
	}
	al.WithFields(fields).Info("Order action")
}

// LogOrderMatched logs an order reaching fully matched state.
func (al *AuditLogger) LogOrderMatched(o *models.Order) {
	al.WithFields(logrus.Fields{
		"order_id":      o.ID,
		"ref":           o.Ref,
		"exchange":      o.ExchangeID.String(),
		"market_id":     o.MarketID,
		"selection_id":  o.SelectionID,
		"side":          o.Side.String(),
		"price":         o.Price,
		"matched_stake": o.MatchedStake,
	}).Info("Order matched")
}

// LogBalanceSnapshot logs a periodic account balance reading.
func (al *AuditLogger) LogBalanceSnapshot(b *models.AccountBalance) {
	al.WithFields(logrus.Fields{
		"exchange":  b.ExchangeID.String(),
		"available": b.Available,
		"exposure":  b.Exposure,
	}).Info("Balance snapshot")
}
