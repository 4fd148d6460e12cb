package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRespectsLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false, "json")
	l.Debug("hidden")
	l.Info("shown", "source", "adweek")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"source":"adweek"`)
}

func TestNewDebugText(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, true, "")
	l.Debug("visible")
	assert.Contains(t, buf.String(), "level=DEBUG")
}
