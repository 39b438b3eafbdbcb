// Package attachments finds the files a note embeds and plans where they go.
package attachments

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/writeup/internal/apperr"
	"github.com/starford/writeup/internal/parser"
	"github.com/starford/writeup/internal/storage"
)

// Naming edits attachment file names on their way to the target folder.
type Naming struct {
	AddPrefix    string
	RemovePrefix string
}

// Apply strips RemovePrefix (when present) and then prepends AddPrefix
// unless the name already starts with it, so Apply(Apply(x)) == Apply(x)
// for any x that does not carry RemovePrefix twice.
func (n Naming) Apply(name string) string {
	name = strings.TrimPrefix(name, n.RemovePrefix)
	if strings.HasPrefix(name, n.AddPrefix) {
		return name
	}
	return n.AddPrefix + name
}

// Active reports whether Apply can change a name.
func (n Naming) Active() bool {
	return n.AddPrefix != "" || n.RemovePrefix != ""
}

// Reference is one ![[name]] occurrence resolved against both folders.
type Reference struct {
	// Name is the text written inside ![[...]].
	Name string
	// File is the name under the target attachments folder.
	File string
	// Source is the source attachments folder joined with the name.
	Source string
	// Target is the target attachments folder joined with File.
	Target string
}

// Resolver resolves embeds against a source attachments folder.
type Resolver struct {
	src       storage.Provider
	targetDir string
	naming    Naming
}

// NewResolver opens sourceDir, failing with apperr.ErrConfiguration when it
// is not an existing directory. The check happens once, here.
func NewResolver(sourceDir, targetDir string, naming Naming) (*Resolver, error) {
	src, err := storage.NewFS(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("source attachments: %w", err)
	}
	return &Resolver{src: src, targetDir: targetDir, naming: naming}, nil
}

// Naming returns the file name rules used for targets.
func (r *Resolver) Naming() Naming {
	return r.naming
}

// Resolve returns a Reference for every embed in text in order of
// appearance. Duplicates are kept and no file is checked for existence.
func (r *Resolver) Resolve(text string) []Reference {
	var out []Reference
	for m := range parser.Embeds(text) {
		name := fileName(m.Target)
		file := r.naming.Apply(name)
		out = append(out, Reference{
			Name:   m.Target,
			File:   file,
			Source: filepath.Join(r.src.Root(), name),
			Target: filepath.Join(r.targetDir, file),
		})
	}
	return out
}

// Sources returns only the resolved source paths of Resolve(text).
func (r *Resolver) Sources(text string) []string {
	refs := r.Resolve(text)
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = ref.Source
	}
	return out
}

// Copy copies every referenced file into dst, which must be rooted at the
// target attachments folder. The first missing file aborts the copy with
// apperr.ErrAttachmentMissing; files already copied stay in place.
func (r *Resolver) Copy(refs []Reference, dst storage.Provider, logger *slog.Logger) error {
	for _, ref := range refs {
		data, err := r.src.Read(fileName(ref.Name))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("%w: %s", apperr.ErrAttachmentMissing, ref.Source)
			}
			return fmt.Errorf("attachments: copy %s: %w", ref.Source, err)
		}
		if err := dst.Write(ref.File, data); err != nil {
			return fmt.Errorf("attachments: copy %s: %w", ref.Source, err)
		}
		logger.Debug("attachments: copied",
			slog.String("source", ref.Source),
			slog.String("target", ref.Target))
	}
	return nil
}

// fileName drops an embed's display suffix, as in ![[pic.png|300]].
func fileName(raw string) string {
	name, _, _ := strings.Cut(raw, "|")
	return name
}
