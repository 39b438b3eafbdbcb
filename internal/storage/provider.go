// Package storage defines the file-system collaborator of the conversion engine.
package storage

// Provider reads and writes files under a single root directory.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// List returns the names of the .md files directly inside dir
	// (relative to root), sorted by name. Subdirectories are not entered.
	List(dir string) ([]string, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
}
