// Package convert runs the conversion pipeline: read notes, resolve
// attachments, combine, rewrite links, add contents and write the result.
//
// A failed run is not rolled back. Attachments and outputs written before
// the failure stay on disk.
package convert

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/starford/writeup/internal/apperr"
	"github.com/starford/writeup/internal/assemble"
	"github.com/starford/writeup/internal/attachments"
	"github.com/starford/writeup/internal/checksum"
	"github.com/starford/writeup/internal/models"
	"github.com/starford/writeup/internal/rewrite"
	"github.com/starford/writeup/internal/storage"
	"github.com/starford/writeup/internal/toc"
)

// DefaultCombinedName is the output name used in combined mode when none is set.
const DefaultCombinedName = "combined.md"

// Renderer turns final Markdown into an HTML page.
type Renderer interface {
	Render(markdown string) ([]byte, error)
}

// Options configures a Service.
type Options struct {
	Mode models.Mode
	// URLPrefix is prepended to PDF link destinations.
	URLPrefix string
	// AssetPrefix is where website embeds point to.
	AssetPrefix string
	// CombinedName names the single output of combined mode.
	CombinedName string
	// Contents prepends a table of contents to every output.
	Contents bool
	// Renderer, when set, also writes an .html file next to each output.
	Renderer Renderer
}

// Result is what a conversion produced.
type Result struct {
	Outputs     []models.Output
	Attachments []attachments.Reference
	State       State
}

// Service coordinates storage, attachment resolution and rewriting.
type Service struct {
	src      storage.Provider
	resolver *attachments.Resolver
	opts     Options
	logger   *slog.Logger
}

// NewService creates a conversion service reading notes from src.
// A nil resolver disables attachment handling.
func NewService(src storage.Provider, resolver *attachments.Resolver, opts Options, logger *slog.Logger) *Service {
	if opts.CombinedName == "" {
		opts.CombinedName = DefaultCombinedName
	}
	return &Service{src: src, resolver: resolver, opts: opts, logger: logger}
}

// Discover returns the documents to convert: file alone when set,
// otherwise every note directly inside the source folder.
func (s *Service) Discover(file string) ([]string, error) {
	if file != "" {
		return []string{file}, nil
	}
	docs, err := s.src.List("")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrConfiguration, err)
	}
	return docs, nil
}

// Convert runs every phase up to ContentsGenerated and returns the final
// texts without touching the target folder.
func (s *Service) Convert(_ context.Context, paths []string) (*Result, error) {
	res := &Result{State: Start}

	docs, err := s.read(paths)
	if err != nil {
		return nil, err
	}
	s.advance(res, FilesDiscovered, slog.Int("documents", len(docs)))

	if s.resolver != nil {
		for _, d := range docs {
			refs := s.resolver.Resolve(d.Content)
			for _, ref := range refs {
				s.logger.Debug("convert: attachment",
					slog.String("document", d.Path),
					slog.String("source", ref.Source))
			}
			res.Attachments = append(res.Attachments, refs...)
		}
	}
	s.advance(res, AttachmentsResolved, slog.Int("attachments", len(res.Attachments)))

	if s.opts.Mode == models.ModeCombined {
		res.Outputs = []models.Output{{Name: s.opts.CombinedName, Text: assemble.Assemble(docs)}}
		s.advance(res, Assembled, slog.String("output", s.opts.CombinedName))
	} else {
		res.Outputs = make([]models.Output, len(docs))
		for i, d := range docs {
			res.Outputs[i] = models.Output{Name: d.Path, Text: d.Content}
		}
	}

	rw := rewrite.New(s.opts.Mode, rewrite.Options{
		URLPrefix:   s.opts.URLPrefix,
		AssetPrefix: s.opts.AssetPrefix,
		AssetName:   s.assetName(),
	})
	for i := range res.Outputs {
		res.Outputs[i].Text = rw.Rewrite(res.Outputs[i].Text)
	}
	s.advance(res, Rewritten, slog.String("mode", string(s.opts.Mode)))

	if s.opts.Contents && s.opts.Mode != models.ModeCopy {
		for i := range res.Outputs {
			res.Outputs[i].Text = toc.Prepend(res.Outputs[i].Text)
		}
	}
	s.advance(res, ContentsGenerated)

	return res, nil
}

// Write copies the resolved attachments into attachDst and writes every
// output into dst. attachDst may be nil when there is nothing to copy.
func (s *Service) Write(_ context.Context, res *Result, dst, attachDst storage.Provider) error {
	if len(res.Attachments) > 0 {
		if attachDst == nil {
			return fmt.Errorf("%w: no target attachments folder", apperr.ErrConfiguration)
		}
		if err := s.resolver.Copy(res.Attachments, attachDst, s.logger); err != nil {
			return err
		}
	}

	for _, out := range res.Outputs {
		data := []byte(out.Text)
		if err := dst.Write(out.Name, data); err != nil {
			return fmt.Errorf("convert: write %s: %w", out.Name, err)
		}
		s.logger.Info("convert: wrote output",
			slog.String("path", filepath.Join(dst.Root(), out.Name)),
			slog.String("checksum", checksum.Sum(data)))

		if s.opts.Renderer == nil {
			continue
		}
		page, err := s.opts.Renderer.Render(out.Text)
		if err != nil {
			return fmt.Errorf("convert: render %s: %w", out.Name, err)
		}
		name := htmlName(out.Name)
		if err := dst.Write(name, page); err != nil {
			return fmt.Errorf("convert: write %s: %w", name, err)
		}
		s.logger.Info("convert: wrote html", slog.String("path", filepath.Join(dst.Root(), name)))
	}
	s.advance(res, Written, slog.Int("outputs", len(res.Outputs)))
	return nil
}

// Run converts paths and writes the result.
func (s *Service) Run(ctx context.Context, paths []string, dst, attachDst storage.Provider) (*Result, error) {
	res, err := s.Convert(ctx, paths)
	if err != nil {
		return nil, err
	}
	if err := s.Write(ctx, res, dst, attachDst); err != nil {
		return res, err
	}
	return res, nil
}

func (s *Service) read(paths []string) ([]models.SourceDocument, error) {
	docs := make([]models.SourceDocument, 0, len(paths))
	for i, p := range paths {
		data, err := s.src.Read(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", apperr.ErrRead, filepath.Join(s.src.Root(), p), err)
		}
		s.logger.Debug("convert: read document", slog.String("path", p))
		docs = append(docs, models.SourceDocument{Path: p, Content: string(data), Position: i})
	}
	return docs, nil
}

// assetName returns the attachment rename rule, or nil when names are kept.
func (s *Service) assetName() func(string) string {
	if s.resolver == nil || !s.resolver.Naming().Active() {
		return nil
	}
	return s.resolver.Naming().Apply
}

func (s *Service) advance(res *Result, next State, attrs ...slog.Attr) {
	res.State = next
	s.logger.LogAttrs(context.Background(), slog.LevelDebug, "convert: "+next.String(), attrs...)
}

func htmlName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".html"
}
