package prompt

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Mode is one intent the model is told to recognise. Keywords feed the local
// classifier only; the model reads Instruction.
type Mode struct {
	Name        string   `yaml:"name"`
	Keywords    []string `yaml:"keywords"`
	Instruction string   `yaml:"instruction"`
}

// Profile is the source of the system instruction. The default profile is
// compiled in; operators may replace it with a YAML file.
type Profile struct {
	Intro    string `yaml:"intro"`
	Modes    []Mode `yaml:"modes"`
	Fallback Mode   `yaml:"fallback"`
	Focus    string `yaml:"focus"`
}

func DefaultProfile() Profile {
	return Profile{
		Intro: "You are CodeBot, an intelligent and versatile developer assistant. Your behavior changes based on the user's intent:",
		Modes: []Mode{
			{
				Name:        "roast",
				Keywords:    []string{"roast", "cook", "hate", "critique"},
				Instruction: "If user says 'roast', 'cook', 'hate', or 'critique' -> Be sarcastic, mean, funny, and brutally honest about code quality.",
			},
			{
				Name:        "translate",
				Keywords:    []string{"translate", "convert"},
				Instruction: "If user asks to convert/translate languages -> Output ONLY the converted code and a brief note.",
			},
			{
				Name:        "complexity",
				Keywords:    []string{"big o", "complexity", "performance"},
				Instruction: "If user asks for 'Big O', 'complexity', or 'performance' -> Analyze time/space complexity mathematically.",
			},
			{
				Name:        "docs",
				Keywords:    []string{"docs", "comments", "explain"},
				Instruction: "If user asks for 'docs', 'comments', or 'explain' -> Add docstrings and comments to the code.",
			},
		},
		Fallback: Mode{
			Name:        "default",
			Instruction: "If none of the above, just be a helpful Senior Engineer. Find bugs and fix them.",
		},
		Focus: "**CRITICAL:** If the user provided code (in the context), focus strictly on that code.",
	}
}

// LoadProfile reads a YAML profile from path. An empty path yields the
// default profile. Fields missing from the file keep their default values.
func LoadProfile(path string, logger *slog.Logger) (Profile, error) {
	p := DefaultProfile()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read prompt profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parse prompt profile %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("prompt profile %s: %w", path, err)
	}

	logger.Info("loaded prompt profile", "path", path, "modes", len(p.Modes))
	return p, nil
}

func (p Profile) Validate() error {
	if strings.TrimSpace(p.Intro) == "" {
		return fmt.Errorf("intro is required")
	}
	if strings.TrimSpace(p.Fallback.Instruction) == "" {
		return fmt.Errorf("fallback.instruction is required")
	}
	seen := make(map[string]bool, len(p.Modes))
	for i, m := range p.Modes {
		if m.Name == "" || m.Instruction == "" {
			return fmt.Errorf("mode %d needs a name and an instruction", i)
		}
		key := strings.ToLower(m.Name)
		if seen[key] {
			return fmt.Errorf("duplicate mode %q", m.Name)
		}
		seen[key] = true
	}
	return nil
}

// SystemInstruction renders the numbered mode list. Output depends only on
// the profile, so equal profiles give byte-identical instructions.
func (p Profile) SystemInstruction() string {
	var b strings.Builder
	b.WriteString(p.Intro)
	b.WriteString("\n\n")

	all := append(append([]Mode(nil), p.Modes...), p.Fallback)
	for i, m := range all {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. **%s MODE:** %s", i+1, strings.ToUpper(m.Name), m.Instruction)
	}

	if p.Focus != "" {
		b.WriteString("\n\n")
		b.WriteString(p.Focus)
	}
	return b.String()
}

// ModeNames lists the selectable modes in order, fallback last.
func (p Profile) ModeNames() []string {
	names := make([]string, 0, len(p.Modes)+1)
	for _, m := range p.Modes {
		names = append(names, m.Name)
	}
	return append(names, p.Fallback.Name)
}
