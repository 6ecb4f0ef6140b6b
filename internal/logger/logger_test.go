package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/cross-book/internal/models"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	if err != nil {
		return nil
	}
	return logEntry
}

func auditOrder() *models.Order {
	sel := models.NewSelection(models.ExchangeBDAQ, 10, 1, "Runner A", nil, nil, 0)
	o := models.NewOrder(sel, models.SideBack, 3.5, 100)
	o.Ref = "D123"
	return o
}

func TestAuditLoggerOrderAction(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogOrderAction("place", "cross-10-1", auditOrder(), false)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "place", logEntry["action"])
	assert.Equal(t, "cross-10-1", logEntry["strategy"])
	assert.Equal(t, "D123", logEntry["ref"])
	assert.Equal(t, "audit", logEntry["component"])
	assert.Equal(t, false, logEntry["practice"])
}

func TestAuditLoggerPracticeFlag(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogOrderAction("place", "maker-1-10-1", auditOrder(), true)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, true, logEntry["practice"])
}

func TestAuditLoggerOrderMatched(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	o := auditOrder()
	o.Status = models.OrderMatched
	o.MatchedStake = o.Stake
	auditLogger.LogOrderMatched(o)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, float64(100), logEntry["matched_stake"])
	assert.Equal(t, "BACK", logEntry["side"])
}

func TestAuditLoggerBalanceSnapshot(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogBalanceSnapshot(&models.AccountBalance{
		ExchangeID: models.ExchangeBF,
		Available:  250.5,
		Exposure:   49.5,
	})

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "BF", logEntry["exchange"])
	assert.Equal(t, 250.5, logEntry["available"])
}

func TestLoggerJSONFormat(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogOrderAction("cancel", "cross-10-1", auditOrder(), false)

	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	assert.NoError(t, err)
	assert.NotEmpty(t, logEntry)
}

func BenchmarkAuditLoggerOrderAction(b *testing.B) {
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	auditLogger := NewAuditLogger(log)
	o := auditOrder()

	for i := 0; i < b.N; i++ {
		auditLogger.LogOrderAction("place", "cross-10-1", o, false)
	}
}
