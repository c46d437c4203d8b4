package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "debug", "json")
	l.WithField("username", "archer").Info("login succeeded")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "login succeeded", line["msg"])
	assert.Equal(t, "archer", line["username"])
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
}

func TestNewWithWriter_UnknownLevel(t *testing.T) {
	l := NewWithWriter(&bytes.Buffer{}, "loud", "text")
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}

func TestContextRoundTrip(t *testing.T) {
	l := Discard()
	entry := l.WithField("request_id", "r-1")
	ctx := NewContext(context.Background(), entry)
	assert.Same(t, entry, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}
