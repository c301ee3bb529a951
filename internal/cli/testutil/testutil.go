// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/bootseq/internal/cli/output"
)

// Model is the application model written by SetupTestProject.
const Model = `name: blinky
dispatchers: [SSI0, QEI0]
software_tasks:
  - { name: foo, priority: 1, capacity: 2 }
hardware_tasks:
  - name: uart
    priority: 3
    binds:
      - { name: UART0 }
      - { name: UART1, cfg: 'feature("uart1")' }
monotonics:
  - { name: mono, priority: 2, binds: SysTick,
      type: { name: Systick, disable_interrupt_on_empty_queue: false } }
`

// SVD is a minimal device description with three priority bits.
const SVD = `<?xml version="1.0" encoding="utf-8"?>
<device schemaVersion="1.1">
  <name>LM3S6965</name>
  <cpu>
    <name>CM3</name>
    <nvicPrioBits>3</nvicPrioBits>
  </cpu>
  <peripherals>
    <peripheral>
      <name>UART0</name>
      <interrupt><name>UART0</name><value>5</value></interrupt>
    </peripheral>
    <peripheral>
      <name>UART1</name>
      <interrupt><name>UART1</name><value>6</value></interrupt>
    </peripheral>
    <peripheral>
      <name>SSI0</name>
      <interrupt><name>SSI0</name><value>7</value></interrupt>
    </peripheral>
    <peripheral>
      <name>QEI0</name>
      <interrupt><name>QEI0</name><value>13</value></interrupt>
    </peripheral>
  </peripherals>
</device>
`

// Project is a temporary bootseq project.
type Project struct {
	Dir    string
	Config string
	Model  string
	SVD    string
	State  string
}

// SetupTestProject creates a temporary project with app.yaml, a device
// description and a bootseq.yaml pointing at both. The build history lives
// in the project directory.
func SetupTestProject(t *testing.T) *Project {
	t.Helper()

	dir := t.TempDir()
	p := &Project{
		Dir:    dir,
		Config: filepath.Join(dir, "bootseq.yaml"),
		Model:  filepath.Join(dir, "app.yaml"),
		SVD:    filepath.Join(dir, "lm3s6965.svd"),
		State:  filepath.Join(dir, ".bootseq", "state.db"),
	}

	cfg := `device:
  svd: lm3s6965.svd
  strict: true
configuration: debug
`
	files := map[string]string{
		p.Config: cfg,
		p.Model:  Model,
		p.SVD:    SVD,
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to create %s: %v", path, err)
		}
	}

	return p
}

// TestRenderer is a Renderer writing into buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a buffered renderer. isTTY decides what ModeAuto
// resolves to.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererMarkdown creates a buffered markdown renderer.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI fails when s contains ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown checks code fences are balanced, headers are not
// empty and every table row has as many cells as its header.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	if n := strings.Count(md, "```"); n%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", n)
	}

	inFence := false
	cells := 0
	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
		if !strings.HasPrefix(trimmed, "|") {
			cells = 0
			continue
		}
		n := strings.Count(trimmed, "|") - strings.Count(trimmed, `\|`) - 1
		if cells == 0 {
			cells = n
		} else if n != cells {
			t.Errorf("table row at line %d has %d cells, header has %d: %q", i+1, n, cells, line)
		}
	}
}
