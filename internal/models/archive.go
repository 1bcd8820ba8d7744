package models

// ArchiveDescriptor describes one downloadable archive file offered by the
// package index for a package. Descriptors are derived per request from an
// index query and are never persisted.
type ArchiveDescriptor struct {
	// Filename is the archive's basename as published on the index
	Filename string

	// URL is the canonical download location
	URL string

	// Size in bytes, or -1 when the index does not report it
	Size int64
}

// Entry is a single member of an opened archive
type Entry struct {
	// Path is archive-relative, forward-slash separated
	Path string

	// Size is the uncompressed size in bytes
	Size int64

	// Mode is the member's permission string, e.g. "-rw-r--r--"
	Mode string
}
