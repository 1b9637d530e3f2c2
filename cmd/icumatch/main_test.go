package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_Match(t *testing.T) {
	dir := t.TempDir()
	profile := writeFile(t, dir, "icu.yaml", `
variant: internal
episodes: {id: 환자번호, admit: 입실일, discharge: 퇴실일}
cultures: {id: 환자번호, collected_at: 시행일}
`)
	episodes := writeFile(t, dir, "episodes.csv", "환자번호,입실일,퇴실일\nP1,2024-01-01,2024-01-10\n")
	cultures := writeFile(t, dir, "cultures.csv", "환자번호,시행일\nP1,2024-01-05\nP1,2024-01-15\n")
	out := filepath.Join(dir, "result.csv")

	var stderr bytes.Buffer
	err := run([]string{
		"-profile", profile,
		"-episodes", episodes,
		"-cultures", cultures,
		"-variant", "external",
		"-out", out,
	}, &stderr)
	require.NoError(t, err, stderr.String())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(string(data), "\ufeff")), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "비고")
	assert.Contains(t, string(data), "감시기간 이후")
}

func TestRun_Census(t *testing.T) {
	dir := t.TempDir()
	jan := writeFile(t, dir, "icu_2025_01.csv", "환자번호,2025.01.30,2025.01.31\nP1,,1\n")
	feb := writeFile(t, dir, "icu_2025_02.csv", "환자번호,2025.02.01,2025.02.02\nP1,1,\n")
	out := filepath.Join(dir, "episodes.csv")

	var stderr bytes.Buffer
	require.NoError(t, run([]string{"-census", jan + "," + feb, "-out", out}, &stderr), stderr.String())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "P1,2025-01-31,2025-02-01,")
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		args []string
	}{
		{"no output", []string{"-census", "a.csv"}},
		{"match without profile", []string{"-episodes", "e.csv", "-cultures", "c.csv", "-out", filepath.Join(dir, "o.csv")}},
		{"missing profile file", []string{"-profile", filepath.Join(dir, "none.yaml"), "-episodes", "e.csv", "-cultures", "c.csv", "-out", filepath.Join(dir, "o.csv")}},
		{"unknown flag", []string{"-bogus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			assert.Error(t, run(tt.args, &stderr))
		})
	}
}
