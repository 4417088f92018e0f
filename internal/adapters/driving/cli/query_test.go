package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/retrieva/internal/core/domain"
)

func TestQueryCmd_Use(t *testing.T) {
	assert.Equal(t, "query [question]", queryCmd.Use)
}

func TestQueryCmd_RequiresExactlyOneArg(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	rootCmd.SetArgs([]string{"query"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestQueryCmd_PrintsResults(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"query", "how does kubernetes networking work"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Equal(t, "how does kubernetes networking work", testMocks.retrieval.lastQuery)
	assert.Equal(t, "default", testMocks.retrieval.lastTenant)

	output := buf.String()
	assert.Contains(t, output, "Results:")
	assert.Contains(t, output, "[1] guide.txt (page 1, score 0.91)")
	assert.Contains(t, output, "[2] guide.txt (page 2, score 0.74)")
	assert.Contains(t, output, "Pods get their addresses")
}

func TestQueryCmd_NoResults(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	testMocks.retrieval.results = nil

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"query", "anything"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No results found.")
}

func TestQueryCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"query", "kubernetes networking", "--json"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.NoError(t, err)

	var views []resultView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &views))
	require.Len(t, views, 2)
	assert.Equal(t, "doc-1", views[0].DocumentID)
	assert.Equal(t, 2, views[0].DocumentVersion)
	assert.Equal(t, "guide.txt", views[0].SourceFilename)
	assert.Equal(t, 0, views[0].ChunkIndex)
	assert.Equal(t, "1", views[0].PageLabel)
	assert.InDelta(t, 0.91, views[0].Score, 1e-9)
	assert.Equal(t, "kubernetes networking", views[0].Phrasing)
}

func TestQueryCmd_OptionsReachService(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"query", "kubernetes networking",
		"--top-k", "7", "--threshold", "0.25", "--no-expand"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Equal(t, 7, testMocks.retrieval.lastOpts.TopK)
	assert.InDelta(t, 0.25, testMocks.retrieval.lastOpts.RelevanceThreshold, 1e-9)
	assert.True(t, testMocks.retrieval.lastOpts.DisableExpansion)
	assert.False(t, testMocks.retrieval.lastOpts.UseHybrid)
}

func TestQueryCmd_HybridUsesConfiguredAlpha(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	testMocks.settings.settings.Retrieval.HybridAlpha = 0.3

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"query", "kubernetes networking", "--hybrid"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.True(t, testMocks.retrieval.lastOpts.UseHybrid)
	assert.InDelta(t, 0.3, testMocks.retrieval.lastOpts.HybridAlpha, 1e-9)
}

func TestQueryCmd_HybridExplicitAlphaWins(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	testMocks.settings.settings.Retrieval.HybridAlpha = 0.3

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"query", "kubernetes networking", "--hybrid", "--alpha", "0.9"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.InDelta(t, 0.9, testMocks.retrieval.lastOpts.HybridAlpha, 1e-9)
}

func TestQueryCmd_ExplicitZeroAlphaIsLexicalOnly(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"query", "kubernetes networking", "--hybrid", "--alpha", "0"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.True(t, testMocks.retrieval.lastOpts.UseHybrid)
	assert.Zero(t, testMocks.retrieval.lastOpts.HybridAlpha)
}

func TestQueryCmd_ServiceError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	testMocks.retrieval.err = domain.ErrEmbeddingUnavailable

	rootCmd.SetArgs([]string{"query", "anything"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "query failed")
}

func TestSnippet(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		maxRunes int
		want     string
	}{
		{
			name:     "short content unchanged",
			content:  "a short chunk",
			maxRunes: 50,
			want:     "a short chunk",
		},
		{
			name:     "whitespace collapsed",
			content:  "spread\n\nacross   lines\tand tabs",
			maxRunes: 50,
			want:     "spread across lines and tabs",
		},
		{
			name:     "long content truncated",
			content:  strings.Repeat("word ", 20),
			maxRunes: 12,
			want:     "word word wo...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, snippet(tt.content, tt.maxRunes))
		})
	}
}
