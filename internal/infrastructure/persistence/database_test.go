package persistence

import (
	"testing"

	applogger "github.com/erp/procurement/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewGormLogger(t *testing.T) {
	t.Run("bridges gorm logging to zap", func(t *testing.T) {
		gl := newGormLogger(zaptest.NewLogger(t), "warn")

		_, ok := gl.(*applogger.GormLogger)
		assert.True(t, ok, "expected the zap-backed gorm logger, got %T", gl)
	})

	t.Run("nil zap logger falls back to a silent gorm logger", func(t *testing.T) {
		gl := newGormLogger(nil, "info")

		require.NotNil(t, gl)
		_, ok := gl.(*applogger.GormLogger)
		assert.False(t, ok)
	})
}
