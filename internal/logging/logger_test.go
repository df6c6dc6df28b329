package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogProvider_CreatesLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	logger, err := NewLogProvider(Options{Dir: dir, Level: "debug"})
	require.NoError(t, err)

	logger.Infof(TypeApp, "started %d", 1)
	logger.Debugf(TypeSwitch, "step %s", "terminate")
	logger.Close()

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"app"`)
	assert.Contains(t, string(data), "started 1")
	assert.Contains(t, string(data), `"type":"switch"`)
}

func TestNewLogProvider_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogProvider(Options{Level: "warn", Console: &buf})
	require.NoError(t, err)
	defer logger.Close()

	logger.Infof(TypeStore, "hidden line")
	logger.Warnf(TypeStore, "visible line")

	assert.NotContains(t, buf.String(), "hidden line")
	assert.Contains(t, buf.String(), "visible line")
}

func TestNewLogProvider_InvalidLevel(t *testing.T) {
	_, err := NewLogProvider(Options{Level: "verbose"})
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.Errorf(TypeTray, "nothing %s", "happens")
	logger.Close()
}

func TestTypeEnumString(t *testing.T) {
	assert.Equal(t, "process", TypeProcess.String())
	assert.Equal(t, "unknown", TypeEnum(99).String())
}

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"john.doe@example.com", "jo***@example.com"},
		{"ab@example.com", "***@example.com"},
		{"plainidentifier", "pl***"},
		{"x", "***"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := MaskEmail(tt.in)
			assert.Equal(t, tt.want, got)
			assert.False(t, strings.Contains(got, "john.doe"))
		})
	}
}
