package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("本番環境", func(t *testing.T) {
		l := NewLogger("production")
		require.NotNil(t, l)
	})

	t.Run("開発環境", func(t *testing.T) {
		l := NewLogger("development")
		require.NotNil(t, l)
	})

	t.Run("環境未指定", func(t *testing.T) {
		l := NewLogger("")
		require.NotNil(t, l)
	})
}

func TestSetAndGet(t *testing.T) {
	original := Get()
	defer Set(original)

	l := NewLogger("production")
	Set(l)

	assert.Same(t, l, Get())
}
