package server

import (
	"mime"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/ralt/pypiview/internal/models"
)

// versionGroup is one version's worth of archive files, newest first on the
// package page.
type versionGroup struct {
	Version string
	Files   []models.ArchiveDescriptor
}

var archiveSuffixes = []string{
	".tar.gz", ".tar.bz2", ".tar.xz", ".tgz", ".tar", ".zip", ".whl", ".egg",
}

// guessVersion extracts the version from a published archive filename.
// Wheels and eggs put it in the second dash-separated field; sdists end with
// "-{version}{suffix}". Returns "" when no guess is possible.
func guessVersion(filename string) string {
	if strings.HasSuffix(filename, ".whl") || strings.HasSuffix(filename, ".egg") {
		parts := strings.Split(filename, "-")
		if len(parts) >= 2 {
			return parts[1]
		}
		return ""
	}

	stem := filename
	for _, suffix := range archiveSuffixes {
		if strings.HasSuffix(stem, suffix) {
			stem = strings.TrimSuffix(stem, suffix)
			break
		}
	}
	if idx := strings.LastIndex(stem, "-"); idx >= 0 && idx < len(stem)-1 {
		return stem[idx+1:]
	}
	return ""
}

// groupByVersion buckets descriptors by guessed version, newest version
// first, files sorted by name within a version.
func groupByVersion(descriptors []models.ArchiveDescriptor) []versionGroup {
	byVersion := make(map[string][]models.ArchiveDescriptor)
	for _, desc := range descriptors {
		version := guessVersion(desc.Filename)
		if version == "" {
			version = "unknown"
		}
		byVersion[version] = append(byVersion[version], desc)
	}

	groups := make([]versionGroup, 0, len(byVersion))
	for version, files := range byVersion {
		sort.Slice(files, func(i, j int) bool {
			return files[i].Filename < files[j].Filename
		})
		groups = append(groups, versionGroup{Version: version, Files: files})
	}
	sort.Slice(groups, func(i, j int) bool {
		return compareVersions(groups[i].Version, groups[j].Version) > 0
	})
	return groups
}

// compareVersions orders dotted version strings, comparing numeric segments
// numerically and falling back to string comparison elsewhere. Good enough
// for presentation; this is not a PEP 440 implementation.
func compareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aerr := strconv.Atoi(as[i])
		bn, berr := strconv.Atoi(bs[i])
		if aerr == nil && berr == nil {
			if an != bn {
				if an < bn {
					return -1
				}
				return 1
			}
			continue
		}
		if c := strings.Compare(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return len(as) - len(bs)
}

// Mime types which are allowed to be presented as detected on raw
// downloads; everything else is served as an opaque octet stream so a
// hostile archive member cannot become a same-origin HTML page.
var mimeWhitelist = []string{
	"application/javascript",
	"application/json",
	"application/pdf",
	"audio/",
	"image/",
	"text/css",
	"text/plain",
	"video/",
}

func guessMimetype(name string) string {
	mimetype := mime.TypeByExtension(path.Ext(name))
	if mimetype == "" {
		return "unknown"
	}
	return mimetype
}

func rawContentType(name string) string {
	mimetype := mime.TypeByExtension(path.Ext(name))
	for _, allowed := range mimeWhitelist {
		if strings.HasPrefix(mimetype, allowed) {
			return mimetype
		}
	}
	return "application/octet-stream"
}
