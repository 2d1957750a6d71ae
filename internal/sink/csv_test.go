package sink

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/templatelab/harvester/internal/harvest"
)

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVSink_FirstRecordEstablishesHeader(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewCSVSink(dir, nil)
	ctx := context.Background()

	require.NoError(t, s.Open(ctx, "zapier_templates_20250601_120000"))
	require.NoError(t, s.Append(ctx, harvest.Record{
		Platform:   "zapier",
		PlatformID: "slack-gmail",
		Name:       "Slack to Gmail",
		URL:        "https://zapier.com/templates/slack-gmail",
		Fields:     map[string]string{"description": "Forward messages", "apps_used": "Slack, Gmail"},
		Order:      []string{"description", "apps_used"},
	}))

	path, err := s.Close(ctx)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "zapier_templates_20250601_120000.csv"), path)

	rows := readRows(t, path)
	require.Len(t, rows, 2)
	require.Equal(t, []string{"platform", "platform_id", "name", "url", "description", "apps_used"}, rows[0])
	require.Equal(t, []string{"zapier", "slack-gmail", "Slack to Gmail", "https://zapier.com/templates/slack-gmail", "Forward messages", "Slack, Gmail"}, rows[1])
}

func TestCSVSink_MissingFieldsBecomeEmptyCells(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewCSVSink(dir, nil)
	ctx := context.Background()

	require.NoError(t, s.Open(ctx, "run"))
	require.NoError(t, s.Append(ctx, harvest.Record{
		Platform:   "make",
		PlatformID: "m-1",
		Name:       "First",
		URL:        "https://example.com/1",
		Fields:     map[string]string{"usage_count": "42"},
		Order:      []string{"usage_count"},
	}))
	require.NoError(t, s.Append(ctx, harvest.Record{
		Platform:   "make",
		PlatformID: "m-2",
		Name:       "Second",
		URL:        "https://example.com/2",
	}))

	path, err := s.Close(ctx)
	require.NoError(t, err)

	rows := readRows(t, path)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"make", "m-2", "Second", "https://example.com/2", ""}, rows[2])
}

func TestCSVSink_UnknownFieldIsSchemaError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewCSVSink(dir, nil)
	ctx := context.Background()

	require.NoError(t, s.Open(ctx, "run"))
	require.NoError(t, s.Append(ctx, harvest.Record{
		Platform:   "n8n",
		PlatformID: "1",
		Name:       "First",
		URL:        "https://example.com/1",
	}))

	err := s.Append(ctx, harvest.Record{
		Platform:   "n8n",
		PlatformID: "2",
		Name:       "Second",
		URL:        "https://example.com/2",
		Fields:     map[string]string{"node_count": "7"},
		Order:      []string{"node_count"},
	})

	var se *SchemaError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "node_count", se.Field)

	// The failed record left no partial row behind.
	path, closeErr := s.Close(ctx)
	require.NoError(t, closeErr)
	require.Len(t, readRows(t, path), 2)
}

func TestCSVSink_RowsVisibleBeforeClose(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewCSVSink(dir, nil)
	ctx := context.Background()

	require.NoError(t, s.Open(ctx, "run"))
	require.NoError(t, s.Append(ctx, harvest.Record{
		Platform:   "zapier",
		PlatformID: "a",
		Name:       "A",
		URL:        "https://example.com/a",
	}))

	// Each append flushes, so the artifact is readable mid-run.
	rows := readRows(t, filepath.Join(dir, "run.csv"))
	require.Len(t, rows, 2)

	_, err := s.Close(ctx)
	require.NoError(t, err)
}

func TestCSVSink_OpenTwiceFails(t *testing.T) {
	t.Parallel()

	s := NewCSVSink(t.TempDir(), nil)
	ctx := context.Background()

	require.NoError(t, s.Open(ctx, "run"))
	require.Error(t, s.Open(ctx, "run"))

	_, err := s.Close(ctx)
	require.NoError(t, err)
}

func TestCSVSink_CloseWithoutOpenIsNoop(t *testing.T) {
	t.Parallel()

	s := NewCSVSink(t.TempDir(), nil)
	path, err := s.Close(context.Background())
	require.NoError(t, err)
	require.Empty(t, path)
}
