package pkgmeta

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/ralt/pypiview/internal/archive"
	"github.com/ralt/pypiview/internal/models"
)

// Extract locates and parses the metadata member of an opened archive.
// sizeLimit caps the metadata member size; an oversized member is treated
// like a missing one so an hostile archive cannot force a huge read.
// Malformed lines inside the member never fail the extraction.
func Extract(a *archive.Archive, sizeLimit int64) (string, *Record, error) {
	path, err := Locate(a)
	if err != nil {
		return "", nil, err
	}

	entry, err := a.Entry(path)
	if err != nil {
		return "", nil, err
	}
	if sizeLimit > 0 && entry.Size > sizeLimit {
		return "", nil, models.NewError(models.NoMetadata, path)
	}

	rc, err := a.ReadEntry(path)
	if err != nil {
		return "", nil, err
	}
	defer rc.Close()

	var reader io.Reader = rc
	if sizeLimit > 0 {
		reader = io.LimitReader(rc, sizeLimit)
	}

	record, diagnostics, err := Parse(reader)
	if err != nil {
		return "", nil, models.WrapError(models.NoMetadata, path, err)
	}
	for _, diag := range diagnostics {
		logrus.Debugf("Skipped metadata line in %s %s: %s", a.Name, path, diag)
	}
	return path, record, nil
}
