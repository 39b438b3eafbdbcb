package internal

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/writeup/internal/apperr"
	"github.com/starford/writeup/internal/testutil"
)

func TestRun_ConfigRequired(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestRun_FolderToWebsite(t *testing.T) {
	cfg := validConfig(t)
	testutil.WriteFiles(t, cfg.Source.Path, map[string]string{
		"a.md": "# Alpha\n![[pic.png]] see [[b#Beta Part]]\n",
		"b.md": "## Beta Part\n",
	})
	testutil.WriteFiles(t, cfg.Source.Attachments, map[string]string{"pic.png": "PNG"})
	cfg.Conversion.Mode = "website"
	cfg.Conversion.AddPrefix = "blog-"
	cfg.Target.AssetPrefix = "/assets"

	if err := Run(context.Background(), WithConfig(cfg), WithLogOutput(io.Discard)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := "# Contents\n- [Alpha](#alpha)\n\n# Alpha\n![](/assets/blog-pic.png) see [Beta Part](#beta-part)\n"
	if got := testutil.ReadFile(t, cfg.Target.Path, "a.md"); got != want {
		t.Errorf("a.md = %q\nwant   %q", got, want)
	}
	if got := testutil.ReadFile(t, cfg.Target.Attachments, "blog-pic.png"); got != "PNG" {
		t.Errorf("attachment = %q", got)
	}
}

func TestRun_SingleFileCombinedHTML(t *testing.T) {
	cfg := validConfig(t)
	testutil.WriteFiles(t, cfg.Source.Path, map[string]string{
		"only.md":  "# Only\n",
		"other.md": "# Other\n",
	})
	cfg.Source.Path = filepath.Join(cfg.Source.Path, "only.md")
	cfg.Conversion.Mode = "combined"
	cfg.Conversion.HTML = true
	cfg.Target.CombinedName = "site.md"

	if err := Run(context.Background(), WithConfig(cfg), WithLogOutput(io.Discard)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := testutil.ReadFile(t, cfg.Target.Path, "site.md"); got != "# Contents\n- [Only](#only)\n\n# Only\n\n\n" {
		t.Errorf("site.md = %q", got)
	}
	if _, err := os.Stat(filepath.Join(cfg.Target.Path, "site.html")); err != nil {
		t.Errorf("site.html: %v", err)
	}
}

func TestRun_MissingAttachmentsDirWritesNothing(t *testing.T) {
	cfg := validConfig(t)
	testutil.WriteFiles(t, cfg.Source.Path, map[string]string{"a.md": "x"})
	cfg.Source.Attachments = filepath.Join(t.TempDir(), "gone")

	err := Run(context.Background(), WithConfig(cfg), WithLogOutput(io.Discard))
	if !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
	if _, statErr := os.Stat(cfg.Target.Path); !os.IsNotExist(statErr) {
		t.Errorf("target folder created despite configuration error")
	}
}

func TestRun_MissingAttachmentFile(t *testing.T) {
	cfg := validConfig(t)
	testutil.WriteFiles(t, cfg.Source.Path, map[string]string{"a.md": "![[nope.png]]"})
	cfg.Conversion.Mode = "pdf"

	err := Run(context.Background(), WithConfig(cfg), WithLogOutput(io.Discard))
	if !errors.Is(err, apperr.ErrAttachmentMissing) {
		t.Fatalf("err = %v, want ErrAttachmentMissing", err)
	}
}
