package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/klauspost/compress/flate"

	"github.com/ralt/pypiview/internal/models"
)

// Archive is an opened zip-compatible package archive. Member listings come
// from the central directory only; no member is decompressed until it is
// explicitly read.
type Archive struct {
	// Kind is the detected package format
	Kind Kind

	// Name is the archive's published filename
	Name string

	reader *zip.Reader
	closer io.Closer
}

// Open opens the archive stored at path. name is the archive's published
// filename, used for kind classification. Tarballs and unrecognized
// containers fail with an UnsupportedArchive error.
func Open(path, name string) (*Archive, error) {
	filenameKind := KindFromFilename(name)
	if filenameKind == KindTarball {
		return nil, models.NewError(models.UnsupportedArchive, name)
	}

	isZip, isTarball, err := probeMagic(path)
	if err != nil {
		return nil, fmt.Errorf("failed to probe archive: %w", err)
	}
	if isTarball || !isZip {
		return nil, models.NewError(models.UnsupportedArchive, name)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}

	a, err := OpenReaderAt(f, info.Size(), name)
	if err != nil {
		f.Close()
		return nil, err
	}
	a.closer = f
	return a, nil
}

// OpenReaderAt opens an archive from any random-access byte source, such as
// a cached file or a remote reader doing HTTP range requests.
func OpenReaderAt(r io.ReaderAt, size int64, name string) (*Archive, error) {
	filenameKind := KindFromFilename(name)
	if filenameKind == KindTarball {
		return nil, models.NewError(models.UnsupportedArchive, name)
	}

	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, models.WrapError(models.UnsupportedArchive, name, err)
	}
	zr.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})

	var paths []string
	for _, f := range zr.File {
		if !f.FileInfo().IsDir() {
			paths = append(paths, f.Name)
		}
	}

	return &Archive{
		Kind:   DetectKind(filenameKind, paths),
		Name:   name,
		reader: zr,
	}, nil
}

// Close releases the underlying byte source, if any
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Entries returns one entry per non-directory member, sorted by path. Sizes
// are the uncompressed lengths recorded in the central directory.
func (a *Archive) Entries() []models.Entry {
	var entries []models.Entry
	for _, f := range a.reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		entries = append(entries, models.Entry{
			Path: f.Name,
			Size: int64(f.UncompressedSize64),
			Mode: f.Mode().String(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
	return entries
}

// Entry returns the entry at the given archive-relative path
func (a *Archive) Entry(path string) (models.Entry, error) {
	for _, f := range a.reader.File {
		if f.Name == path && !f.FileInfo().IsDir() {
			return models.Entry{
				Path: f.Name,
				Size: int64(f.UncompressedSize64),
				Mode: f.Mode().String(),
			}, nil
		}
	}
	return models.Entry{}, models.NewError(models.EntryNotFound, path)
}

// ReadEntry streams a single member's decompressed bytes. The caller owns
// the returned ReadCloser.
func (a *Archive) ReadEntry(path string) (io.ReadCloser, error) {
	for _, f := range a.reader.File {
		if f.Name == path && !f.FileInfo().IsDir() {
			rc, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("failed to open member %s: %w", path, err)
			}
			return rc, nil
		}
	}
	return nil, models.NewError(models.EntryNotFound, path)
}
