package lol

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestLevels(t *testing.T) {
	defer SetLoggers(int(Level.Load()))
	color.NoColor = true
	NoTimeStamp.Store(true)
	defer NoTimeStamp.Store(false)
	buf := new(bytes.Buffer)
	l, c, e := New(buf)
	SetLogLevel("warn")
	l.I.Ln("hidden")
	l.W.F("shown %d", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown 1")
	assert.Contains(t, buf.String(), "log_test.go:")
	buf.Reset()
	assert.False(t, c.E(nil))
	assert.True(t, c.D(errors.New("quiet")))
	assert.Empty(t, buf.String())
	err := e.E("boom %s", "here")
	assert.EqualError(t, err, "boom here")
	assert.True(t, strings.Contains(buf.String(), "ERR boom here"))
}

func TestGetLogLevel(t *testing.T) {
	assert.Equal(t, Trace, GetLogLevel("TRACE"))
	assert.Equal(t, Info, GetLogLevel("nonsense"))
	assert.Equal(t, Off, GetLogLevel("off"))
}
