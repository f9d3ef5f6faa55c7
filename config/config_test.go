package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cli, err := Parse(nil)
	require.NoError(t, err)
	require.Equal(t, defaultSignedURLTTLSeconds, cli.SignedURLTTLSeconds)
	require.Equal(t, defaultWorkerConcurrency, cli.WorkerConcurrency)
	require.Equal(t, []string{"en-US"}, cli.SpeechLanguageCodes)
	require.Equal(t, []string{"gemini-1.5-pro", "gemini-1.5-flash"}, cli.GeminiModelPriorityList)
}

func TestParseClampsWorkerConcurrency(t *testing.T) {
	cli, err := Parse([]string{"-worker-concurrency=0"})
	require.NoError(t, err)
	require.Equal(t, minWorkerConcurrency, cli.WorkerConcurrency)

	cli, err = Parse([]string{"-worker-concurrency=100"})
	require.NoError(t, err)
	require.Equal(t, maxWorkerConcurrency, cli.WorkerConcurrency)
}

func TestParseGeminiKeys(t *testing.T) {
	cli, err := Parse([]string{"-gemini-api-keys=k1, k2 ,,k3"})
	require.NoError(t, err)
	require.Equal(t, "k1, k2 ,,k3", cli.GeminiAPIKeys)
}
