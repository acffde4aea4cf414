package databank

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/tyler180/allstar-rosters/configs"
	"github.com/tyler180/allstar-rosters/internal/databank/databanktest"
	"github.com/tyler180/allstar-rosters/internal/logging"
)

func fixtureFS() fstest.MapFS { return databanktest.FS() }

func testHeaders(t *testing.T) Headers {
	t.Helper()
	b, err := configs.FS.ReadFile("databank_headers.ini")
	require.NoError(t, err)
	h, err := LoadHeaders(b)
	require.NoError(t, err)
	return h
}

func newTestProcessor(t *testing.T) *Processor {
	t.Helper()
	return &Processor{
		Source:  FSSource{FS: fixtureFS()},
		Headers: testHeaders(t),
		Log:     logging.NewNop(),
	}
}
