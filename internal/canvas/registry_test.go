package canvas

import (
	"errors"
	"testing"

	"github.com/focosx/focos/internal/apperr"
)

func TestRegisterDuplicateTag(t *testing.T) {
	r := NewRegistry()
	first := TypeBundle{Tag: "text", DefaultWidth: 100, DefaultHeight: 50}
	if err := r.Register(first); err != nil {
		t.Fatalf("Register: %v", err)
	}
	err := r.Register(TypeBundle{Tag: "text", DefaultWidth: 999})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("duplicate Register error = %v, want ErrConflict", err)
	}
	// First registration remains in effect.
	got, err := r.Resolve("text")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.DefaultWidth != 100 {
		t.Errorf("first registration was replaced: width = %v", got.DefaultWidth)
	}
}

func TestResolveUnknownTag(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Resolve("nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestResolveByExtensionFirstMatchWins(t *testing.T) {
	r := NewRegistry()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(r.Register(TypeBundle{Tag: "markdown", HandledExtensions: []string{"md"}}))
	must(r.Register(TypeBundle{Tag: "plain", HandledExtensions: []string{"md", "txt"}}))

	b, err := r.ResolveByExtension("md")
	must(err)
	if b.Tag != "markdown" {
		t.Errorf("overlap resolution = %q, want first-registered %q", b.Tag, "markdown")
	}
	b, err = r.ResolveByExtension(".TXT")
	must(err)
	if b.Tag != "plain" {
		t.Errorf("case/dot normalization failed: got %q", b.Tag)
	}
}

func TestResolveByExtensionNoMatch(t *testing.T) {
	r := NewRegistry()
	if _, err := r.ResolveByExtension("xyz"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestTagsPreserveRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	for _, tag := range []string{"c", "a", "b"} {
		if err := r.Register(TypeBundle{Tag: tag}); err != nil {
			t.Fatal(err)
		}
	}
	got := r.Tags()
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Tags() = %v, want %v", got, want)
		}
	}
}

func TestBuiltinBundlesRegister(t *testing.T) {
	r := NewRegistry()
	for _, b := range BuiltinBundles() {
		if err := r.Register(b); err != nil {
			t.Fatalf("register builtin %q: %v", b.Tag, err)
		}
	}
	b, err := r.ResolveByExtension("png")
	if err != nil {
		t.Fatalf("ResolveByExtension(png): %v", err)
	}
	if b.Tag != "image" {
		t.Errorf("png resolved to %q", b.Tag)
	}
	web, err := r.Resolve("web")
	if err != nil {
		t.Fatal(err)
	}
	if !web.Interaction.CaptureWheel {
		t.Error("web bundle should capture wheel events")
	}
}
