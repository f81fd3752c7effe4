package logger

import (
	"bytes"
	"log/slog"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

const (
	textDebugString = `severity=DEBUG msg=www.debugExample.com`
	textInfoString  = `severity=INFO msg=www.infoExample.com`
	textWarnString  = `severity=WARNING msg=www.warningExample.com`
	textErrorString = `severity=ERROR msg=www.errorExample.com`

	jsonInfoString  = `"severity":"INFO"`
	jsonErrorString = `"severity":"ERROR"`
)

type LoggerTest struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTest))
}

func redirectLogsToBuffer(buf *bytes.Buffer, level string) {
	programLevel := new(slog.LevelVar)
	setLoggingLevel(level, programLevel)
	defaultLogger = slog.New(defaultLoggerFactory.createJSONOrTextHandler(buf, programLevel, ""))
}

func testFunctions() []func() {
	return []func(){
		func() { Debugf("www.debugExample.com") },
		func() { Infof("www.infoExample.com") },
		func() { Warnf("www.warningExample.com") },
		func() { Errorf("www.errorExample.com") },
	}
}

func (t *LoggerTest) runAtLevel(format, level string) []string {
	defaultLoggerFactory.format = format
	var buf bytes.Buffer
	redirectLogsToBuffer(&buf, level)

	var out []string
	for _, f := range testFunctions() {
		f()
		out = append(out, buf.String())
		buf.Reset()
	}
	return out
}

func (t *LoggerTest) TestTextFormatLogs_LevelOff() {
	out := t.runAtLevel("text", Off)
	for _, line := range out {
		t.Empty(line)
	}
}

func (t *LoggerTest) TestTextFormatLogs_LevelError() {
	out := t.runAtLevel("text", Error)
	t.Empty(out[0])
	t.Empty(out[1])
	t.Empty(out[2])
	t.Regexp(regexp.MustCompile(textErrorString), out[3])
}

func (t *LoggerTest) TestTextFormatLogs_LevelInfo() {
	out := t.runAtLevel("text", Info)
	t.Empty(out[0])
	t.Regexp(regexp.MustCompile(textInfoString), out[1])
	t.Regexp(regexp.MustCompile(textWarnString), out[2])
	t.Regexp(regexp.MustCompile(textErrorString), out[3])
}

func (t *LoggerTest) TestTextFormatLogs_LevelDebug() {
	out := t.runAtLevel("text", Debug)
	t.Regexp(regexp.MustCompile(textDebugString), out[0])
	t.Regexp(regexp.MustCompile(textInfoString), out[1])
}

func (t *LoggerTest) TestJSONFormatLogs_LevelInfo() {
	out := t.runAtLevel("json", Info)
	t.Regexp(regexp.MustCompile(jsonInfoString), out[1])
	t.Regexp(regexp.MustCompile(jsonErrorString), out[3])
}

func (t *LoggerTest) TestSetLoggingLevel() {
	tests := []struct {
		name     string
		expected slog.Level
	}{
		{Trace, LevelTrace},
		{Debug, LevelDebug},
		{Info, LevelInfo},
		{Warning, LevelWarn},
		{Error, LevelError},
		{Off, LevelOff},
	}
	for _, test := range tests {
		v := new(slog.LevelVar)
		setLoggingLevel(test.name, v)
		assert.Equal(t.T(), test.expected, v.Level())
	}
}

func (t *LoggerTest) TestSetLogFormat() {
	SetLogFormat("json")
	assert.Equal(t.T(), "json", defaultLoggerFactory.format)
	SetLogFormat("text")
	assert.Equal(t.T(), "text", defaultLoggerFactory.format)
}
