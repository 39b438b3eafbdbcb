package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/writeup/internal/apperr"
	"github.com/starford/writeup/internal/attachments"
	"github.com/starford/writeup/internal/models"
	"github.com/starford/writeup/internal/storage"
	"github.com/starford/writeup/internal/testutil"
)

type env struct {
	srcDir    string
	src       storage.Provider
	attachDir string
	resolver  *attachments.Resolver
	dst       *storage.FS
	attachDst *storage.FS
}

func newEnv(t *testing.T, notes, attach map[string]string) *env {
	t.Helper()
	srcDir, src := testutil.TestVault(t, notes)
	attachDir, _ := testutil.TestVault(t, attach)
	out := t.TempDir()
	resolver, err := attachments.NewResolver(attachDir, filepath.Join(out, "assets"), attachments.Naming{})
	if err != nil {
		t.Fatal(err)
	}
	dst, err := storage.EnsureFS(filepath.Join(out, "notes"))
	if err != nil {
		t.Fatal(err)
	}
	attachDst, err := storage.EnsureFS(filepath.Join(out, "assets"))
	if err != nil {
		t.Fatal(err)
	}
	return &env{srcDir: srcDir, src: src, attachDir: attachDir, resolver: resolver, dst: dst, attachDst: attachDst}
}

func (e *env) service(opts Options) *Service {
	return NewService(e.src, e.resolver, opts, testutil.Logger())
}

func TestConvert_PDF(t *testing.T) {
	e := newEnv(t, map[string]string{
		"note.md": "# Intro\nSee [[Other Note#Part B|this]] and ![[a.png]].\n",
	}, nil)
	svc := e.service(Options{Mode: models.ModePDF, URLPrefix: "https://x.dev/pdf", Contents: true})

	res, err := svc.Convert(context.Background(), []string{"note.md"})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if res.State != ContentsGenerated {
		t.Errorf("state = %s, want %s", res.State, ContentsGenerated)
	}
	want := "# Contents\n- [Intro](#intro)\n\n# Intro\nSee [this](https://x.dev/pdf/other-note.pdf#part-b) and ![[a.png]].\n"
	if len(res.Outputs) != 1 || res.Outputs[0].Text != want {
		t.Errorf("outputs = %+v\nwant text %q", res.Outputs, want)
	}
	if len(res.Attachments) != 1 || res.Attachments[0].Source != filepath.Join(e.attachDir, "a.png") {
		t.Errorf("attachments = %+v", res.Attachments)
	}
}

func TestConvert_WebsiteSingle(t *testing.T) {
	e := newEnv(t, map[string]string{
		"a.md": "See [[Note A#Section 1|here]] for details.",
		"b.md": "[[#Intro]]",
	}, nil)
	svc := e.service(Options{Mode: models.ModeWebsite, AssetPrefix: "/img"})

	res, err := svc.Convert(context.Background(), []string{"a.md", "b.md"})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(res.Outputs) != 2 {
		t.Fatalf("len(outputs) = %d, want 2", len(res.Outputs))
	}
	if got := res.Outputs[0].Text; got != "See [here](#section-1) for details." {
		t.Errorf("a.md = %q", got)
	}
	if got := res.Outputs[1].Text; got != "[Intro](#intro)" {
		t.Errorf("b.md = %q", got)
	}
}

func TestConvert_Combined(t *testing.T) {
	e := newEnv(t, map[string]string{
		"1.md": "# One\n![[x.png]]",
		"2.md": "## Two\nBack to [[#One]]",
	}, nil)
	svc := e.service(Options{Mode: models.ModeCombined, AssetPrefix: "assets", Contents: true, CombinedName: "all.md"})

	res, err := svc.Convert(context.Background(), []string{"1.md", "2.md"})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(res.Outputs) != 1 || res.Outputs[0].Name != "all.md" {
		t.Fatalf("outputs = %+v", res.Outputs)
	}
	want := "# Contents\n- [One](#one)\n  - [Two](#two)\n\n" +
		"# One\n![](assets/x.png)\n\n## Two\nBack to [One](#one)\n\n"
	if got := res.Outputs[0].Text; got != want {
		t.Errorf("text = %q\nwant   %q", got, want)
	}
}

func TestConvert_CopyOnlyUnchanged(t *testing.T) {
	in := "# T\n[[a]] ![[b.png]]"
	e := newEnv(t, map[string]string{"n.md": in}, nil)
	res, err := e.service(Options{Mode: models.ModeCopy, Contents: true}).Convert(context.Background(), []string{"n.md"})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if res.Outputs[0].Text != in {
		t.Errorf("text = %q, want unchanged", res.Outputs[0].Text)
	}
	if len(res.Attachments) != 1 {
		t.Errorf("attachments = %+v, want 1", res.Attachments)
	}
}

func TestRun_PDFEmbedsFollowRenamedAttachments(t *testing.T) {
	e := newEnv(t, map[string]string{"n.md": "![[a.png|300]] and [[Other]]"}, map[string]string{"a.png": "img"})
	resolver, err := attachments.NewResolver(e.attachDir, e.attachDst.Root(), attachments.Naming{AddPrefix: "blog-"})
	if err != nil {
		t.Fatal(err)
	}
	svc := NewService(e.src, resolver, Options{Mode: models.ModePDF, URLPrefix: "p"}, testutil.Logger())

	res, err := svc.Run(context.Background(), []string{"n.md"}, e.dst, e.attachDst)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := "![[blog-a.png|300]] and [Other](p/other.pdf)"
	if got := testutil.ReadFile(t, e.dst.Root(), "n.md"); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	if len(res.Attachments) != 1 || res.Attachments[0].File != "blog-a.png" {
		t.Errorf("attachments = %+v", res.Attachments)
	}
	if got := testutil.ReadFile(t, e.attachDst.Root(), "blog-a.png"); got != "img" {
		t.Errorf("copied attachment = %q, want img", got)
	}
}

func TestConvert_CopyRenamesEmbedsOnly(t *testing.T) {
	e := newEnv(t, map[string]string{"n.md": "# T\n[[a]] ![[Pasted b.png]]"}, nil)
	resolver, err := attachments.NewResolver(e.attachDir, e.attachDst.Root(), attachments.Naming{RemovePrefix: "Pasted "})
	if err != nil {
		t.Fatal(err)
	}
	svc := NewService(e.src, resolver, Options{Mode: models.ModeCopy, Contents: true}, testutil.Logger())
	res, err := svc.Convert(context.Background(), []string{"n.md"})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if want := "# T\n[[a]] ![[b.png]]"; res.Outputs[0].Text != want {
		t.Errorf("text = %q, want %q", res.Outputs[0].Text, want)
	}
}

func TestConvert_ReadError(t *testing.T) {
	e := newEnv(t, map[string]string{"n.md": "x"}, nil)
	_, err := e.service(Options{Mode: models.ModePDF}).Convert(context.Background(), []string{"n.md", "missing.md"})
	if !errors.Is(err, apperr.ErrRead) {
		t.Errorf("err = %v, want ErrRead", err)
	}
}

func TestConvert_NoResolver(t *testing.T) {
	e := newEnv(t, map[string]string{"n.md": "![[a.png]]"}, nil)
	svc := NewService(e.src, nil, Options{Mode: models.ModeWebsite}, testutil.Logger())
	res, err := svc.Convert(context.Background(), []string{"n.md"})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(res.Attachments) != 0 {
		t.Errorf("attachments = %+v, want none", res.Attachments)
	}
}

func TestDiscover(t *testing.T) {
	e := newEnv(t, map[string]string{"b.md": "", "a.md": "", "sub/c.md": "", "x.txt": ""}, nil)
	svc := e.service(Options{Mode: models.ModeCopy})

	docs, err := svc.Discover("")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if strings.Join(docs, ",") != "a.md,b.md" {
		t.Errorf("docs = %v", docs)
	}

	docs, _ = svc.Discover("b.md")
	if len(docs) != 1 || docs[0] != "b.md" {
		t.Errorf("docs = %v", docs)
	}
}

type fakeRenderer struct{}

func (fakeRenderer) Render(md string) ([]byte, error) { return []byte("<p>" + md + "</p>"), nil }

func TestRun_WritesOutputsAndAttachments(t *testing.T) {
	e := newEnv(t,
		map[string]string{"n.md": "![[a.png]] [[b]]"},
		map[string]string{"a.png": "PNG"})
	svc := e.service(Options{Mode: models.ModeWebsite, AssetPrefix: "assets", Renderer: fakeRenderer{}})

	res, err := svc.Run(context.Background(), []string{"n.md"}, e.dst, e.attachDst)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != Written {
		t.Errorf("state = %s, want written", res.State)
	}
	if got := testutil.ReadFile(t, e.dst.Root(), "n.md"); got != "![](assets/a.png) [b](#b)" {
		t.Errorf("n.md = %q", got)
	}
	if got := testutil.ReadFile(t, e.dst.Root(), "n.html"); got != "<p>![](assets/a.png) [b](#b)</p>" {
		t.Errorf("n.html = %q", got)
	}
	if got := testutil.ReadFile(t, e.attachDst.Root(), "a.png"); got != "PNG" {
		t.Errorf("a.png = %q", got)
	}
}

func TestRun_MissingAttachmentIsFatal(t *testing.T) {
	e := newEnv(t, map[string]string{"n.md": "![[gone.png]]"}, nil)
	_, err := e.service(Options{Mode: models.ModePDF}).Run(context.Background(), []string{"n.md"}, e.dst, e.attachDst)
	if !errors.Is(err, apperr.ErrAttachmentMissing) {
		t.Fatalf("err = %v, want ErrAttachmentMissing", err)
	}
	if _, statErr := os.Stat(filepath.Join(e.dst.Root(), "n.md")); !os.IsNotExist(statErr) {
		t.Errorf("output written despite failed copy: %v", statErr)
	}
}

func TestStateString(t *testing.T) {
	if Assembled.String() != "assembled" || Written.String() != "written" {
		t.Errorf("unexpected names: %s %s", Assembled, Written)
	}
}
