package prompt

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codebot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

const wantDefaultInstruction = "You are CodeBot, an intelligent and versatile developer assistant. Your behavior changes based on the user's intent:\n\n" +
	"1. **ROAST MODE:** If user says 'roast', 'cook', 'hate', or 'critique' -> Be sarcastic, mean, funny, and brutally honest about code quality.\n" +
	"2. **TRANSLATE MODE:** If user asks to convert/translate languages -> Output ONLY the converted code and a brief note.\n" +
	"3. **COMPLEXITY MODE:** If user asks for 'Big O', 'complexity', or 'performance' -> Analyze time/space complexity mathematically.\n" +
	"4. **DOCS MODE:** If user asks for 'docs', 'comments', or 'explain' -> Add docstrings and comments to the code.\n" +
	"5. **DEFAULT MODE:** If none of the above, just be a helpful Senior Engineer. Find bugs and fix them.\n\n" +
	"**CRITICAL:** If the user provided code (in the context), focus strictly on that code."

// --- Profile ---

func TestDefaultProfile_SystemInstruction(t *testing.T) {
	got := DefaultProfile().SystemInstruction()
	if got != wantDefaultInstruction {
		t.Fatalf("instruction mismatch:\n got: %q\nwant: %q", got, wantDefaultInstruction)
	}
}

func TestLoadProfile_EmptyPathIsDefault(t *testing.T) {
	p, err := LoadProfile("", testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.SystemInstruction() != wantDefaultInstruction {
		t.Fatal("empty path should give the default profile")
	}
}

func TestLoadProfile_OverridesModes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	yml := `
modes:
  - name: review
    keywords: [review, lgtm]
    instruction: "If user asks for a review -> Comment like a pull request reviewer."
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadProfile(path, testLogger())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(p.Modes) != 1 || p.Modes[0].Name != "review" {
		t.Fatalf("expected single review mode, got %+v", p.Modes)
	}
	inst := p.SystemInstruction()
	if !strings.Contains(inst, "1. **REVIEW MODE:**") || !strings.Contains(inst, "2. **DEFAULT MODE:**") {
		t.Fatalf("unexpected instruction:\n%s", inst)
	}
	if !strings.HasPrefix(inst, DefaultProfile().Intro) {
		t.Fatal("intro should keep its default")
	}
}

func TestLoadProfile_DuplicateMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	yml := `
modes:
  - {name: a, instruction: x}
  - {name: A, instruction: y}
`
	os.WriteFile(path, []byte(yml), 0o644)
	if _, err := LoadProfile(path, testLogger()); err == nil {
		t.Fatal("expected duplicate mode error")
	}
}

func TestLoadProfile_MissingFile(t *testing.T) {
	if _, err := LoadProfile("/nonexistent/profile.yaml", testLogger()); err == nil {
		t.Fatal("expected error for missing file")
	}
}

// --- Composer ---

func TestCompose_WithoutContext(t *testing.T) {
	c := NewComposer(DefaultProfile())
	p := c.Compose("explain this", "")

	if len(p) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(p))
	}
	if p[0].Role != domain.RoleSystem || p[0].Content != wantDefaultInstruction {
		t.Fatalf("first entry should be the system instruction, got %+v", p[0])
	}
	if p[1].Role != domain.RoleUser || p[1].Content != "explain this" {
		t.Fatalf("last entry should be the raw user text, got %+v", p[1])
	}
}

func TestCompose_WithContext(t *testing.T) {
	c := NewComposer(DefaultProfile())
	p := c.Compose("@bot roast this", "def foo(): pass")

	if len(p) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(p))
	}
	want := "HERE IS THE CODE CONTEXT:\n```\ndef foo(): pass\n```"
	if p[1].Role != domain.RoleUser || p[1].Content != want {
		t.Fatalf("unexpected context entry: %q", p[1].Content)
	}
	if p[2].Content != "@bot roast this" {
		t.Fatalf("user text should be last, got %q", p[2].Content)
	}
}

func TestCompose_AlwaysValid(t *testing.T) {
	c := NewComposer(DefaultProfile())
	for _, user := range []string{"", "hi"} {
		for _, ctx := range []string{"", "   \n", "x := 1"} {
			if err := c.Compose(user, ctx).Validate(); err != nil {
				t.Fatalf("Compose(%q, %q) invalid: %v", user, ctx, err)
			}
		}
	}
}

func TestCompose_WhitespaceContextIsAbsent(t *testing.T) {
	p := NewComposer(DefaultProfile()).Compose("hi", "  \n\t")
	if len(p) != 2 {
		t.Fatalf("whitespace context should be dropped, got %d entries", len(p))
	}
}

// --- Classifier ---

func TestClassifier_Detect(t *testing.T) {
	c := NewClassifier(DefaultProfile())
	tests := []struct {
		text string
		want string
	}{
		{"codebot ROAST my code", "roast"},
		{"please translate to Go", "translate"},
		{"what is the Big O here", "complexity"},
		{"explain this", "docs"},
		{"fix my bug", "default"},
		{"", "default"},
		{"roast and explain", "roast"}, // tie, first mode wins
		{"critique, hate, explain", "roast"},
	}
	for _, tt := range tests {
		if got := c.Detect(tt.text); got != tt.want {
			t.Errorf("Detect(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestProfile_ModeNames(t *testing.T) {
	names := DefaultProfile().ModeNames()
	if len(names) != 5 || names[4] != "default" {
		t.Fatalf("unexpected mode names %v", names)
	}
}
