package chroma

import (
	"strings"
	"testing"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionName(t *testing.T) {
	tests := []struct {
		name     string
		tenantID string
		want     string
	}{
		{
			name:     "plain tenant",
			tenantID: "acme",
			want:     "retrieva_acme",
		},
		{
			name:     "uppercase is lowered",
			tenantID: "Acme-Corp",
			want:     "retrieva_acme-corp",
		},
		{
			name:     "allowed punctuation is kept",
			tenantID: "team_a.b-c",
			want:     "retrieva_team_a.b-c",
		},
		{
			name:     "invalid runes become dashes",
			tenantID: "acme corp/eu",
			want:     "retrieva_acme-corp-eu",
		},
		{
			name:     "trailing separators are trimmed",
			tenantID: "acme!",
			want:     "retrieva_acme",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, collectionName(tt.tenantID))
		})
	}
}

func TestCollectionName_TruncatesLongTenants(t *testing.T) {
	name := collectionName(strings.Repeat("a", 100))

	assert.Len(t, name, maxCollectionNameLength)
	assert.True(t, strings.HasPrefix(name, collectionPrefix))
}

func TestCollectionName_IsDeterministic(t *testing.T) {
	assert.Equal(t, collectionName("tenant-a"), collectionName("tenant-a"))
	assert.NotEqual(t, collectionName("tenant-a"), collectionName("tenant-b"))
}

func TestMetadataMap_RoundTrip(t *testing.T) {
	meta := chromago.NewDocumentMetadata(
		chromago.NewStringAttribute(metaDocumentID, "doc-1"),
		chromago.NewIntAttribute(metaDocumentVersion, 3),
		chromago.NewStringAttribute(metaSourceFilename, "notes.txt"),
		chromago.NewIntAttribute(metaChunkIndex, 7),
		chromago.NewIntAttribute(metaTokenCount, 120),
		chromago.NewStringAttribute(metaPageLabel, "2"),
	)

	m := metadataMap(meta)
	require.NotNil(t, m)

	assert.Equal(t, "doc-1", metaString(m, metaDocumentID))
	assert.Equal(t, 3, metaInt(m, metaDocumentVersion))
	assert.Equal(t, "notes.txt", metaString(m, metaSourceFilename))
	assert.Equal(t, 7, metaInt(m, metaChunkIndex))
	assert.Equal(t, 120, metaInt(m, metaTokenCount))
	assert.Equal(t, "2", metaString(m, metaPageLabel))
}

func TestMetaAccessors_MissingKeys(t *testing.T) {
	m := map[string]any{"other": "value"}

	assert.Empty(t, metaString(m, metaDocumentID))
	assert.Zero(t, metaInt(m, metaDocumentVersion))
}

func TestMetaAccessors_NilMap(t *testing.T) {
	assert.Empty(t, metaString(nil, metaDocumentID))
	assert.Zero(t, metaInt(nil, metaChunkIndex))
}

func TestMetaInt_ToleratesNumericTypes(t *testing.T) {
	m := map[string]any{
		"float": float64(5),
		"int64": int64(6),
		"int":   7,
	}

	assert.Equal(t, 5, metaInt(m, "float"))
	assert.Equal(t, 6, metaInt(m, "int64"))
	assert.Equal(t, 7, metaInt(m, "int"))
}
