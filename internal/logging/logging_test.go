package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, New("debug", "", nil).GetLevel())
	assert.Equal(t, logrus.WarnLevel, New("warn", "", nil).GetLevel())
	assert.Equal(t, logrus.InfoLevel, New("", "", nil).GetLevel())
	assert.Equal(t, logrus.InfoLevel, New("loud", "", nil).GetLevel())
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New("info", "JSON", &buf)

	l.WithField("endpoint", "courses.v1").Info("trying endpoint")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "trying endpoint", entry["msg"])
	assert.Equal(t, "courses.v1", entry["endpoint"])
}
