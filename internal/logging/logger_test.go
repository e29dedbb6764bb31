package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_FieldsAreAttached(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{zl: zap.New(core)}

	l.Info("Order created", Fields{"order_number": "ORD-1", "total": 1050.0})
	l.With(Fields{"component": "checkout"}).Warn("Rate missing", Fields{"category": "INTERSTATE"})

	entries := logs.All()
	assert.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, "Order created", entries[0].Message)
	assert.Equal(t, "ORD-1", first["order_number"])
	assert.Equal(t, 1050.0, first["total"])

	second := entries[1].ContextMap()
	assert.Equal(t, "checkout", second["component"])
	assert.Equal(t, "INTERSTATE", second["category"])
}

func TestLogger_NoFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := &Logger{zl: zap.New(core)}

	l.Debug("dropped")
	l.Info("kept")

	assert.Equal(t, 1, logs.Len())
	assert.Empty(t, logs.All()[0].Context)
}

func TestNewLogger(t *testing.T) {
	assert.NotNil(t, NewLogger("tax"))
	assert.NotNil(t, NewNopLogger())
}
