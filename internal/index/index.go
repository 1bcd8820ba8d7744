package index

import (
	"context"
	"regexp"
	"strings"

	"github.com/ralt/pypiview/internal/models"
)

// Repository is a package index that can enumerate the archive files
// published for a package.
type Repository interface {
	// FilesForPackage returns one descriptor per archive file. It fails
	// with a PackageNotFound error when the index has no such package and
	// with UpstreamUnavailable on network or server errors.
	FilesForPackage(ctx context.Context, name string) ([]models.ArchiveDescriptor, error)
}

var normalizeRe = regexp.MustCompile(`[-_.]+`)

// NormalizePackageName applies PEP 503 name normalization: runs of dots,
// dashes and underscores collapse to a single dash and the result is
// lowercased.
func NormalizePackageName(name string) string {
	return strings.ToLower(normalizeRe.ReplaceAllString(name, "-"))
}
