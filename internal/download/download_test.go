package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tyler180/allstar-rosters/internal/logging"
)

func TestFilename(t *testing.T) {
	cases := map[string]string{
		"https://host/core/People.csv":     "People.csv",
		"https://host/core/People.csv?x=1": "People.csv",
		"https://host/data/stats/":         "stats",
		"People.csv":                       "People.csv",
	}
	for in, want := range cases {
		if got := Filename(in); got != want {
			t.Fatalf("Filename(%q) got %q want %q", in, got, want)
		}
	}
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/core/People.csv":
			_, _ = w.Write([]byte("playerID\naaronha01\n"))
		case "/core/Teams.csv":
			_, _ = w.Write([]byte("teamID\nML1\n"))
		default:
			http.Error(w, "nope", http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDownloadWritesOnlyOn200(t *testing.T) {
	srv := newServer(t)
	dir := filepath.Join(t.TempDir(), "downloads")
	d := New(dir, 5*time.Second, 2, logging.NewNop())

	path, err := d.Download(context.Background(), srv.URL+"/core/People.csv")
	require.NoError(t, err)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "playerID\naaronha01\n", string(b))

	_, err = d.Download(context.Background(), srv.URL+"/core/Missing.csv")
	require.ErrorIs(t, err, ErrUnexpectedStatus)
	_, statErr := os.Stat(filepath.Join(dir, "Missing.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownloadAllReportsFailures(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()
	d := New(dir, 5*time.Second, 3, logging.NewNop())

	res, err := d.DownloadAll(context.Background(), []string{
		srv.URL + "/core/People.csv",
		srv.URL + "/contrib/Salaries.csv",
		srv.URL + "/core/Teams.csv",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "People.csv"), filepath.Join(dir, "Teams.csv")}, res.Saved)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, srv.URL+"/contrib/Salaries.csv", res.Failed[0].URL)
}
