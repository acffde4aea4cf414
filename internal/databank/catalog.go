package databank

import (
	"sort"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"gopkg.in/ini.v1"

	"github.com/tyler180/allstar-rosters/internal/logging"
)

var ErrNoValidFilenames = errors.New("no valid download filenames")

// Catalog knows which databank files exist and which folders hold them.
type Catalog struct {
	SourceURL string
	folders   map[string][]string
}

// folderList accepts either "core" or ["core", "contrib"].
type folderList []string

func (f *folderList) UnmarshalJSON(b []byte) error {
	var one string
	if err := sonic.Unmarshal(b, &one); err == nil {
		*f = folderList{one}
		return nil
	}
	var many []string
	if err := sonic.Unmarshal(b, &many); err != nil {
		return errors.Wrap(err, "folder must be a string or list of strings")
	}
	*f = many
	return nil
}

// NewCatalog decodes the filenames JSON document.
func NewCatalog(sourceURL string, filenamesJSON []byte) (*Catalog, error) {
	var raw map[string]folderList
	if err := sonic.Unmarshal(filenamesJSON, &raw); err != nil {
		return nil, errors.Wrap(err, "decode databank filenames")
	}
	c := &Catalog{SourceURL: sourceURL, folders: make(map[string][]string, len(raw))}
	for name, folders := range raw {
		c.folders[name] = folders
	}
	return c, nil
}

// ValidFilenames returns every known file name, sorted.
func (c *Catalog) ValidFilenames() []string {
	out := make([]string, 0, len(c.folders))
	for name := range c.folders {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DownloadFilenames filters requested names down to known ones. An empty
// request means every known file. Unknown names are logged and skipped.
func (c *Catalog) DownloadFilenames(log *logging.Logger, requested ...string) ([]string, error) {
	if len(requested) == 0 {
		requested = c.ValidFilenames()
	}
	var keep, invalid []string
	for _, name := range requested {
		if _, ok := c.folders[name]; ok {
			keep = append(keep, name)
		} else {
			invalid = append(invalid, name)
		}
	}
	if len(invalid) > 0 {
		log.Warn("removed invalid filenames", "count", len(invalid), "filenames", invalid)
	}
	if len(keep) == 0 {
		return nil, ErrNoValidFilenames
	}
	return keep, nil
}

// DownloadURLs builds <source>/<folder>/<name>.csv for every folder of
// every name.
func (c *Catalog) DownloadURLs(names []string) []string {
	var urls []string
	for _, name := range names {
		for _, folder := range c.folders[name] {
			urls = append(urls, c.SourceURL+"/"+folder+"/"+name+".csv")
		}
	}
	return urls
}

// Headers maps a file name to its lower-case source header -> column name
// renames.
type Headers map[string]map[string]string

// LoadHeaders reads the headers INI; one section per file.
func LoadHeaders(b []byte) (Headers, error) {
	f, err := ini.Load(b)
	if err != nil {
		return nil, errors.Wrap(err, "load databank headers")
	}
	h := Headers{}
	for _, sec := range f.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		m := make(map[string]string, len(sec.Keys()))
		for _, k := range sec.Keys() {
			m[k.Name()] = k.String()
		}
		h[sec.Name()] = m
	}
	return h, nil
}
