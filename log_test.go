package spritevk

import (
	"os"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityStrings(t *testing.T) {
	assert.Equal(t, "TRACE", SeverityTrace.String())
	assert.Equal(t, "TODO", SeverityTodo.String())
	assert.Equal(t, "INFO", SeverityInfo.String())
	assert.Equal(t, "WARN", SeverityWarn.String())
	assert.Equal(t, "ERROR", SeverityError.String())
	assert.Equal(t, "FATAL", SeverityFatal.String())
}

func TestLogMessagePrefixFormat(t *testing.T) {
	old := os.Stdout
	r, w, err := os.Pipe()
	assert.NoError(t, err)
	os.Stdout = w

	logInfo("hello %d", 42)

	w.Close()
	os.Stdout = old
	out := make([]byte, 4096)
	n, _ := r.Read(out)

	// [DD/MM/YYYY - HH:MM:SS][file - line][LEVEL]: message
	pattern := regexp.MustCompile(`^\[\d{2}/\d{2}/\d{4} - \d{2}:\d{2}:\d{2}\]\[log_test\.go - \d+\]\[INFO\]: hello 42\n$`)
	assert.Regexp(t, pattern, string(out[:n]))
}
