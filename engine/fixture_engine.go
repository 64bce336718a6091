package engine

import (
	"context"
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/use-agent/stayscan/models"
)

// FixtureEngine serves saved listing pages from a directory, named after the
// last path segment of the listing URL (rooms/12345 -> 12345.html). It is
// used for offline runs and end-to-end tests.
type FixtureEngine struct {
	dir string
}

// NewFixtureEngine creates a FixtureEngine reading from dir.
func NewFixtureEngine(dir string) *FixtureEngine {
	return &FixtureEngine{dir: dir}
}

func (e *FixtureEngine) Name() string { return "fixture" }

func (e *FixtureEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, Transient(e.Name(), "fetch cancelled", err)
	}
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, Permanent(e.Name(), "parse url", err)
	}
	id := path.Base(path.Clean(u.Path))
	if id == "/" || id == "." {
		return nil, Permanent(e.Name(), "url has no listing id", nil)
	}

	body, err := os.ReadFile(filepath.Join(e.dir, id+".html"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &FetchError{Engine: e.Name(), Kind: models.FailurePermanent, StatusCode: 404, Reason: "no saved page for listing " + id}
	}
	if err != nil {
		return nil, Transient(e.Name(), "read saved page", err)
	}

	res := &FetchResult{
		HTML:       string(body),
		Title:      extractTitle(string(body)),
		StatusCode: 200,
		FinalURL:   req.URL,
		EngineName: e.Name(),
	}
	if err := CheckPage(req.URL, res); err != nil {
		return nil, err
	}
	return res, nil
}
