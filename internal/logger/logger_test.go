package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLevels(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false).Debug("chart derived", "chart", "pie-chart")
	assert.Empty(t, buf.String())

	New(&buf, true).Debug("chart derived", "chart", "pie-chart")
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "chart=pie-chart")
}
