package pkgmeta

import (
	"strings"

	"github.com/ralt/pypiview/internal/archive"
	"github.com/ralt/pypiview/internal/models"
)

const eggMetadataPath = "EGG-INFO/PKG-INFO"

// Locate returns the archive-relative path of the package's metadata member.
// The location is a per-kind convention: the single top-level
// *.dist-info/METADATA for wheels, the single top-level */PKG-INFO for
// zip sdists, EGG-INFO/PKG-INFO for eggs. More than one candidate fails with
// AmbiguousMetadata; a kind with no known location fails with NoMetadata.
func Locate(a *archive.Archive) (string, error) {
	entries := a.Entries()

	switch a.Kind {
	case archive.KindWheel:
		return locateSingle(a, entries, isWheelMetadata)
	case archive.KindSdistZip:
		return locateSingle(a, entries, isSdistMetadata)
	case archive.KindEgg:
		for _, entry := range entries {
			if entry.Path == eggMetadataPath {
				return entry.Path, nil
			}
		}
		return "", models.NewError(models.NoMetadata, a.Name)
	default:
		return "", models.NewError(models.NoMetadata, a.Name)
	}
}

func locateSingle(a *archive.Archive, entries []models.Entry, match func(string) bool) (string, error) {
	var found []string
	for _, entry := range entries {
		if match(entry.Path) {
			found = append(found, entry.Path)
		}
	}
	switch len(found) {
	case 0:
		return "", models.NewError(models.NoMetadata, a.Name)
	case 1:
		return found[0], nil
	default:
		return "", models.NewError(models.AmbiguousMetadata, strings.Join(found, ", "))
	}
}

func isWheelMetadata(p string) bool {
	dir, rest, ok := strings.Cut(p, "/")
	return ok && rest == "METADATA" && strings.HasSuffix(dir, ".dist-info")
}

func isSdistMetadata(p string) bool {
	_, rest, ok := strings.Cut(p, "/")
	return ok && rest == "PKG-INFO"
}
