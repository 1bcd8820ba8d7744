package archive

import (
	"bytes"
	"os"
	"strings"
)

// Kind classifies an archive by its package format
type Kind int

const (
	KindUnknown Kind = iota
	KindWheel
	KindEgg
	KindSdistZip
	KindPlainZip
	KindTarball
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindWheel:
		return "wheel"
	case KindEgg:
		return "egg"
	case KindSdistZip:
		return "sdist"
	case KindPlainZip:
		return "zip"
	case KindTarball:
		return "tarball"
	default:
		return "unknown"
	}
}

// Magic bytes for container detection
var (
	// Zip archives (and wheels, eggs) start with the local file header signature
	zipMagic = []byte{0x50, 0x4B, 0x03, 0x04}

	// Empty zip archives start with the end-of-central-directory signature
	zipEmptyMagic = []byte{0x50, 0x4B, 0x05, 0x06}

	// Gzip magic bytes (.tar.gz, .tgz)
	gzipMagic = []byte{0x1F, 0x8B}

	// Bzip2 magic bytes (.tar.bz2)
	bzip2Magic = []byte("BZh")

	// XZ magic bytes (.tar.xz)
	xzMagic = []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}
)

var tarballSuffixes = []string{".tar", ".tar.gz", ".tgz", ".tar.bz2", ".tar.xz"}

// KindFromFilename guesses the archive kind from the published filename.
// Zip-format sdists and plain zips are indistinguishable by name; the
// structural probe in DetectKind refines the guess once the central
// directory is available.
func KindFromFilename(name string) Kind {
	switch {
	case strings.HasSuffix(name, ".whl"):
		return KindWheel
	case strings.HasSuffix(name, ".egg"):
		return KindEgg
	case strings.HasSuffix(name, ".zip"):
		return KindSdistZip
	default:
		for _, suffix := range tarballSuffixes {
			if strings.HasSuffix(name, suffix) {
				return KindTarball
			}
		}
		return KindUnknown
	}
}

// DetectKind combines the filename guess with a structural probe over the
// member paths. A *.dist-info/METADATA member marks a wheel, a top-level
// */PKG-INFO marks an sdist; a zip with neither is a plain zip.
func DetectKind(filenameKind Kind, paths []string) Kind {
	hasDistInfo := false
	hasPkgInfo := false
	for _, p := range paths {
		if isDistInfoMetadata(p) {
			hasDistInfo = true
		}
		if isTopLevelPkgInfo(p) {
			hasPkgInfo = true
		}
	}

	switch {
	case hasDistInfo:
		return KindWheel
	case filenameKind == KindEgg:
		return KindEgg
	case hasPkgInfo:
		return KindSdistZip
	case filenameKind == KindWheel || filenameKind == KindSdistZip:
		// Name promised more than the structure delivers
		return KindPlainZip
	case filenameKind == KindUnknown:
		return KindPlainZip
	default:
		return filenameKind
	}
}

func isDistInfoMetadata(p string) bool {
	dir, rest, ok := strings.Cut(p, "/")
	return ok && rest == "METADATA" && strings.HasSuffix(dir, ".dist-info")
}

func isTopLevelPkgInfo(p string) bool {
	_, rest, ok := strings.Cut(p, "/")
	return ok && rest == "PKG-INFO"
}

// probeMagic reads the first bytes of a file and reports whether it is a
// zip container. Compressed tarballs are reported distinctly so that the
// caller can refuse them instead of failing on a garbled central directory.
func probeMagic(path string) (isZip, isTarball bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return false, false, err
	}
	defer f.Close()

	header := make([]byte, 8)
	n, err := f.Read(header)
	if err != nil && n == 0 {
		return false, false, err
	}
	header = header[:n]

	if bytes.HasPrefix(header, zipMagic) || bytes.HasPrefix(header, zipEmptyMagic) {
		return true, false, nil
	}
	if bytes.HasPrefix(header, gzipMagic) || bytes.HasPrefix(header, bzip2Magic) || bytes.HasPrefix(header, xzMagic) {
		return false, true, nil
	}
	return false, false, nil
}
