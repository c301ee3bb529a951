// Package loader reads application models from YAML files.
package loader

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/leapstack-labs/bootseq/pkg/core"
	"gopkg.in/yaml.v3"
)

// Model is a loaded application model.
type Model struct {
	// Path is the file the model was read from, empty for in-memory input
	Path string
	App  *core.App
	// Analysis is the explicit dispatcher table, nil when the file has none
	Analysis *core.Analysis
	// Hash is the hex sha256 of the model source
	Hash string
}

// appYAML is the on-disk shape of an application model.
// Unknown fields cause parse errors.
type appYAML struct {
	Name          string             `yaml:"name"`
	Idle          *idleYAML          `yaml:"idle"`
	Dispatchers   []dispatcherYAML   `yaml:"dispatchers"`
	SoftwareTasks []softwareTaskYAML `yaml:"software_tasks"`
	HardwareTasks []hardwareTaskYAML `yaml:"hardware_tasks"`
	Monotonics    []monotonicYAML    `yaml:"monotonics"`
	Analysis      *analysisYAML      `yaml:"analysis"`
}

type idleYAML struct {
	Name string `yaml:"name"`
}

// dispatcherYAML accepts either a bare interrupt name or a mapping.
type dispatcherYAML struct {
	Name string `yaml:"name"`
	Cfg  string `yaml:"cfg"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *dispatcherYAML) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		d.Name = node.Value
		return nil
	}
	type plain dispatcherYAML
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*d = dispatcherYAML(p)
	return nil
}

type softwareTaskYAML struct {
	Name     string `yaml:"name"`
	Priority int    `yaml:"priority"`
	Capacity int    `yaml:"capacity"`
}

type hardwareTaskYAML struct {
	Name     string        `yaml:"name"`
	Priority int           `yaml:"priority"`
	Binds    []bindingYAML `yaml:"binds"`
}

// bindingYAML accepts either a bare name or {name, cfg}.
type bindingYAML struct {
	Name string `yaml:"name"`
	Cfg  string `yaml:"cfg"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *bindingYAML) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		b.Name = node.Value
		return nil
	}
	type plain bindingYAML
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*b = bindingYAML(p)
	return nil
}

type monotonicYAML struct {
	Name     string            `yaml:"name"`
	Priority int               `yaml:"priority"`
	Binds    string            `yaml:"binds"`
	Type     monotonicTypeYAML `yaml:"type"`
}

type monotonicTypeYAML struct {
	Name                         string `yaml:"name"`
	DisableInterruptOnEmptyQueue bool   `yaml:"disable_interrupt_on_empty_queue"`
}

type analysisYAML struct {
	Interrupts []dispatchAssignmentYAML `yaml:"interrupts"`
}

type dispatchAssignmentYAML struct {
	Priority  int    `yaml:"priority"`
	Interrupt string `yaml:"interrupt"`
}

// LoadFile reads and validates the model at path.
func LoadFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.File = path
		}
		return nil, err
	}
	m.Path = path
	if m.App.Name == "" {
		m.App.Name = defaultName(path)
	}
	return m, nil
}

// Parse decodes and validates a model from YAML bytes.
func Parse(data []byte) (*Model, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var raw appYAML
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Message: "empty model"}
		}
		return nil, &ParseError{Message: err.Error()}
	}

	sum := sha256.Sum256(data)
	m := &Model{App: raw.toApp(), Hash: hex.EncodeToString(sum[:])}
	if raw.Analysis != nil {
		m.Analysis = &core.Analysis{}
		for _, a := range raw.Analysis.Interrupts {
			m.Analysis.Interrupts = append(m.Analysis.Interrupts, core.DispatchAssignment{
				Priority:  a.Priority,
				Interrupt: a.Interrupt,
			})
		}
	}

	if err := Validate(m.App); err != nil {
		return nil, err
	}
	return m, nil
}

func (raw *appYAML) toApp() *core.App {
	app := &core.App{Name: raw.Name}
	if raw.Idle != nil {
		name := raw.Idle.Name
		if name == "" {
			name = "idle"
		}
		app.Idle = &core.IdleTask{Name: name}
	}
	for _, d := range raw.Dispatchers {
		app.Dispatchers = append(app.Dispatchers, core.Dispatcher{Name: d.Name, Cfg: d.Cfg})
	}
	for _, t := range raw.SoftwareTasks {
		app.SoftwareTasks = append(app.SoftwareTasks, core.SoftwareTask{
			Name:     t.Name,
			Priority: t.Priority,
			Capacity: t.Capacity,
		})
	}
	for _, t := range raw.HardwareTasks {
		task := core.HardwareTask{Name: t.Name, Priority: t.Priority}
		for _, b := range t.Binds {
			task.Binds = append(task.Binds, core.Binding{Name: b.Name, Cfg: strings.TrimSpace(b.Cfg)})
		}
		app.HardwareTasks = append(app.HardwareTasks, task)
	}
	for _, m := range raw.Monotonics {
		app.Monotonics = append(app.Monotonics, core.MonotonicTask{
			Name:     m.Name,
			Priority: m.Priority,
			Binds:    m.Binds,
			Type: core.MonotonicType{
				Name:                         m.Type.Name,
				DisableInterruptOnEmptyQueue: m.Type.DisableInterruptOnEmptyQueue,
			},
		})
	}
	return app
}

func defaultName(path string) string {
	base := path
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	for _, ext := range []string{".yaml", ".yml"} {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// ParseError represents a model parsing error.
type ParseError struct {
	File    string
	Message string
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return e.Message
}
