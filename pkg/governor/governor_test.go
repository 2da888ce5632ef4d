package governor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGovernPassesThroughSmallPayload(t *testing.T) {
	g := New(WithSpillDir(t.TempDir()))
	out, spill := g.Govern("sess1", "search", "short output", 100)
	if out != "short output" {
		t.Errorf("expected unchanged payload, got %q", out)
	}
	if spill != nil {
		t.Errorf("expected no spill for small payload, got %+v", spill)
	}
}

func TestGovernFallsBackToDefaultOnInvalidLimit(t *testing.T) {
	g := New(WithSpillDir(t.TempDir()))
	small := "x"
	out, spill := g.Govern("sess1", "search", small, 0)
	if out != small {
		t.Errorf("expected payload under the default limit to pass through, got truncated: %q", out)
	}
	if spill != nil {
		t.Errorf("unexpected spill: %+v", spill)
	}
}

func TestGovernSpillsAndTruncatesOversizedPayload(t *testing.T) {
	dir := t.TempDir()
	g := New(WithSpillDir(dir))

	payload := strings.Repeat("a", 100_000) // ~25000 tokens at 4 chars/token
	out, spill := g.Govern("sess1", "search", payload, 5000)

	if spill == nil || !spill.Written {
		t.Fatalf("expected a successful spill, got %+v", spill)
	}
	if _, err := os.Stat(spill.Path); err != nil {
		t.Errorf("expected spill file to exist at %s: %v", spill.Path, err)
	}
	if !strings.Contains(out, "tokens omitted") {
		t.Errorf("expected an omitted-tokens marker in truncated output")
	}
	if !strings.Contains(out, spill.Path) {
		t.Errorf("expected the spill path to be referenced in the truncated message")
	}

	data, err := os.ReadFile(spill.Path)
	if err != nil {
		t.Fatalf("reading spill file: %v", err)
	}
	if string(data) != payload {
		t.Errorf("spilled content does not match original payload")
	}
}

func TestGovernHeadOnlySliceBelowTwoThousandTokenLimit(t *testing.T) {
	g := New(WithSpillDir(t.TempDir()))
	payload := strings.Repeat("b", 20_000)
	out, _ := g.Govern("sess1", "search", payload, 500)

	if strings.Contains(out, "tokens omitted") {
		t.Errorf("limit < 2000 tokens should use a head-only slice with no omitted-middle marker")
	}
}

func TestGovernUsesSessionScopedSpillFilename(t *testing.T) {
	dir := t.TempDir()
	g := New(WithSpillDir(dir))
	payload := strings.Repeat("c", 100_000)
	_, spill := g.Govern("my-session-id", "bash", payload, 1000)

	if spill == nil || !strings.Contains(filepath.Base(spill.Path), "my-session-id") {
		t.Fatalf("expected spill filename to embed the session id, got %+v", spill)
	}
}
