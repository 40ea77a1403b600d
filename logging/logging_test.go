package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&buf, "debug", "json")
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())

	l.WithField("component", "test").Info("hello")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "test", line["component"])
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := NewWithWriter(&bytes.Buffer{}, "loud", "text")
	assert.Error(t, err)
	_, err = NewWithWriter(&bytes.Buffer{}, "info", "xml")
	assert.Error(t, err)
}
