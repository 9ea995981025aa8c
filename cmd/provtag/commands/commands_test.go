package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrSkyle/provtag/pkg/engine/permissions"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestPermissionsCommand(t *testing.T) {
	var doc permissions.PolicyDocument
	require.NoError(t, json.Unmarshal([]byte(run(t, "permissions", "--read-only")), &doc))
	assert.Len(t, doc.Statement, 1)
}

func TestVersionCommand(t *testing.T) {
	assert.True(t, strings.HasPrefix(run(t, "version"), "provtag "))
}

func TestReportCommand_Mock(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	out := run(t, "report", "--mock")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, `"creator","created-date","lifetime","name","id","kind"`, lines[0])
	assert.Contains(t, out, `"ops@example.com","2023-11-02","","mock-bucket-iceberg","arn:aws:s3:::mock-bucket-iceberg","s3"`)
	assert.Contains(t, out, `"<unknown>","<unknown>","permanent","web-frontend"`)
}

func TestLoadSettings_FlagOverridesDefault(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	run(t, "version", "--workers", "4", "--window-days", "30")
	assert.Equal(t, 4, settings.Workers)
	assert.Equal(t, 30, settings.WindowDays)
}

func TestLoadSettings_RejectsInvalidWorkers(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	rootCmd.SetArgs([]string{"version", "--workers", "0"})
	err := rootCmd.Execute()
	assert.Error(t, err)
	rootCmd.SetArgs([]string{"version", "--workers", "1"})
	require.NoError(t, rootCmd.Execute())
}
