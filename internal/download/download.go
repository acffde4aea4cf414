package download

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"

	"github.com/tyler180/allstar-rosters/internal/logging"
)

var ErrUnexpectedStatus = errors.New("unexpected http status")

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119 Safari/537.36 (+allstar-rosters)"

// Downloader saves remote files into SaveDir.
type Downloader struct {
	Client  *http.Client
	SaveDir string
	Workers int
	Log     *logging.Logger
}

func New(saveDir string, timeout time.Duration, workers int, log *logging.Logger) *Downloader {
	if log == nil {
		log = logging.Default()
	}
	return &Downloader{
		Client:  &http.Client{Timeout: timeout},
		SaveDir: saveDir,
		Workers: workers,
		Log:     log,
	}
}

// Filename is the last path segment of rawURL, or the one before a
// trailing slash.
func Filename(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		p = u.Path
	}
	segs := strings.Split(p, "/")
	if len(segs) > 1 && segs[len(segs)-1] == "" {
		return segs[len(segs)-2]
	}
	return segs[len(segs)-1]
}

// Fetch GETs rawURL and returns the body of a 200 response.
func (d *Downloader) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "build request %s", rawURL)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client().Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", rawURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.Wrapf(ErrUnexpectedStatus, "GET %s: %d %s", rawURL, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", rawURL)
	}
	return body, nil
}

func (d *Downloader) client() *http.Client {
	if d.Client == nil {
		return http.DefaultClient
	}
	return d.Client
}

// Download saves rawURL to SaveDir/Filename(rawURL). Nothing is written
// unless the server answers 200.
func (d *Downloader) Download(ctx context.Context, rawURL string) (string, error) {
	body, err := d.Fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(d.SaveDir, 0o755); err != nil {
		return "", errors.Wrapf(err, "mkdir %s", d.SaveDir)
	}
	path := filepath.Join(d.SaveDir, Filename(rawURL))
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", path)
	}
	return path, nil
}

// Failure records a URL that could not be saved.
type Failure struct {
	URL string
	Err error
}

// Result of DownloadAll. Saved is in input order.
type Result struct {
	Saved  []string
	Failed []Failure
}

// DownloadAll fetches urls on a bounded pool. Individual failures are
// logged and reported, not returned.
func (d *Downloader) DownloadAll(ctx context.Context, urls []string) (Result, error) {
	workers := d.Workers
	if workers < 1 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return Result{}, errors.Wrap(err, "create worker pool")
	}
	defer pool.Release()

	saved := make([]string, len(urls))
	errs := make([]error, len(urls))
	var wg sync.WaitGroup
	for i, u := range urls {
		i, u := i, u
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			saved[i], errs[i] = d.Download(ctx, u)
		}); err != nil {
			wg.Done()
			wg.Wait()
			return Result{}, errors.Wrap(err, "submit download")
		}
	}
	wg.Wait()

	var res Result
	for i, u := range urls {
		if errs[i] != nil {
			d.Log.Warn("download failed", "url", u, "error", errs[i])
			res.Failed = append(res.Failed, Failure{URL: u, Err: errs[i]})
			continue
		}
		d.Log.Info("downloaded", "url", u, "path", saved[i])
		res.Saved = append(res.Saved, saved[i])
	}
	return res, nil
}
