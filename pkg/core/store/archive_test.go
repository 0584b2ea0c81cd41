package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenArchiveRequiresURL(t *testing.T) {
	_, err := OpenArchive(context.Background(), "")
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestArchiveRoundTrip(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	a, err := OpenArchive(ctx, dbURL)
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.EnsureSchema(ctx))

	doc := sampleDocument(t)
	require.NoError(t, a.SaveRun(ctx, doc))

	got, err := a.LatestRun(ctx, "singapore", "2025")
	require.NoError(t, err)
	drivers, err := got.Drivers()
	require.NoError(t, err)
	assert.Contains(t, drivers, "Lando Norris")

	// a second write of the same run is a new row, not an overwrite
	updated, err := MergeSection(doc, SectionPrediction, "Rain decides it.")
	require.NoError(t, err)
	require.NoError(t, a.SaveRun(ctx, updated))
	var rows int
	require.NoError(t, a.pool.QueryRow(ctx, `SELECT count(*) FROM preview_documents WHERE run_id = $1`, "run-1").Scan(&rows))
	assert.GreaterOrEqual(t, rows, 2)

	latest, err := a.LatestRun(ctx, "", "2025")
	require.NoError(t, err)
	prediction, err := latest.Prediction()
	require.NoError(t, err)
	assert.Equal(t, "Rain decides it.", prediction)

	_, err = a.LatestRun(ctx, "nowhere", "1950")
	assert.ErrorIs(t, err, ErrNotFound)
}
