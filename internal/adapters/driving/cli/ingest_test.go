package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/razorsearch/internal/core/ports/driving"
)

func TestIngestCmd_Use(t *testing.T) {
	assert.Equal(t, "ingest", ingestCmd.Use)
}

func TestIngestCmd_PrintsReport(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	ingestService.(*mockIngestService).report = &driving.IngestReport{
		Ingested: 12, Skipped: 3, Errors: 1,
	}

	out, err := execute(t, "ingest")
	require.NoError(t, err)
	assert.Contains(t, out, "Ingested 12 documents (3 skipped, 1 errors)")
}

func TestIngestCmd_PropagatesFailure(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	ingestService.(*mockIngestService).err = errors.New("store offline")

	_, err := execute(t, "ingest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store offline")
}

func TestIngestCmd_RejectsArgs(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "ingest", "extra")
	assert.Error(t, err)
}
