package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/templatelab/harvester/internal/harvest"
)

func TestPostgresSink_AppendUpsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewPostgresSinkWithPool(mock, "templates")
	require.NoError(t, err)
	require.NoError(t, s.Open(context.Background(), "n8n_templates_20250601_120000"))

	rec := harvest.Record{
		Platform:   "n8n",
		PlatformID: "2001",
		Name:       "Sync CRM contacts",
		URL:        "https://n8n.io/workflows/2001",
		Fields:     map[string]string{"total_views": "120", "creator_name": "Ada"},
		Order:      []string{"creator_name", "total_views"},
	}

	mock.ExpectExec("INSERT INTO templates").
		WithArgs(
			rec.Platform,
			rec.PlatformID,
			rec.Name,
			rec.URL,
			[]byte(`{"creator_name":"Ada","total_views":"120"}`),
			"n8n_templates_20250601_120000",
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.Append(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSink_AppendPropagatesExecError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewPostgresSinkWithPool(mock, "templates")
	require.NoError(t, err)
	require.NoError(t, s.Open(context.Background(), "run"))

	mock.ExpectExec("INSERT INTO templates").
		WithArgs("make", "m-1", "Name", "https://example.com", []byte(`{}`), "run").
		WillReturnError(errors.New("connection reset"))

	err = s.Append(context.Background(), harvest.Record{
		Platform:   "make",
		PlatformID: "m-1",
		Name:       "Name",
		URL:        "https://example.com",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "upsert template")
}

func TestPostgresSink_RejectsRecordWithoutID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewPostgresSinkWithPool(mock, "templates")
	require.NoError(t, err)
	require.NoError(t, s.Open(context.Background(), "run"))

	err = s.Append(context.Background(), harvest.Record{Platform: "make"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgresSinkWithPool_ValidatesTableName(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewPostgresSinkWithPool(mock, "templates; drop table users")
	require.Error(t, err)

	s, err := NewPostgresSinkWithPool(mock, "")
	require.NoError(t, err)
	require.Equal(t, "templates", s.table)
}
