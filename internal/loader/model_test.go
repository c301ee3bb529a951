package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/bootseq/pkg/core"
)

const blinky = `
name: blinky
dispatchers: [SSI0, { name: QEI0 }]
software_tasks:
  - { name: foo, priority: 1, capacity: 4 }
hardware_tasks:
  - name: uart
    priority: 3
    binds:
      - UART0
      - { name: UART1, cfg: ' feature == "uart1" ' }
  - name: fault
    priority: 2
    binds: [BusFault]
monotonics:
  - name: mono
    priority: 2
    binds: SysTick
    type: { name: Systick, disable_interrupt_on_empty_queue: true }
analysis:
  interrupts:
    - { priority: 1, interrupt: SSI0 }
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(blinky))
	require.NoError(t, err)

	app := m.App
	assert.Equal(t, "blinky", app.Name)
	assert.False(t, app.HasIdle())
	assert.Equal(t, []core.Dispatcher{{Name: "SSI0"}, {Name: "QEI0"}}, app.Dispatchers)
	assert.Equal(t, []core.SoftwareTask{{Name: "foo", Priority: 1, Capacity: 4}}, app.SoftwareTasks)

	require.Len(t, app.HardwareTasks, 2)
	assert.Equal(t, []core.Binding{{Name: "UART0"}, {Name: "UART1", Cfg: `feature == "uart1"`}}, app.HardwareTasks[0].Binds)
	assert.Equal(t, core.BindException, app.HardwareTasks[1].Binds[0].Kind())

	require.Len(t, app.Monotonics, 1)
	assert.True(t, app.Monotonics[0].IsSysTick())
	assert.True(t, app.Monotonics[0].Type.DisableInterruptOnEmptyQueue)

	require.NotNil(t, m.Analysis)
	assert.Equal(t, []core.DispatchAssignment{{Priority: 1, Interrupt: "SSI0"}}, m.Analysis.Interrupts)
}

func TestParse_IdleDefaultsName(t *testing.T) {
	m, err := Parse([]byte("name: a\nidle: {}\n"))
	require.NoError(t, err)
	require.True(t, m.App.HasIdle())
	assert.Equal(t, "idle", m.App.Idle.Name)
	assert.Nil(t, m.Analysis)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		errSubstr string
	}{
		{"empty", "", "empty model"},
		{"unknown field", "name: a\nfoo: bar\n", "field foo not found"},
		{"unknown nested field", "software_tasks:\n  - { name: a, priority: 1, capacity: 1, cap: 2 }\n", "field cap not found"},
		{"zero capacity", "software_tasks:\n  - { name: a, priority: 1, capacity: 0 }\n", "capacity must be positive"},
		{"zero priority", "hardware_tasks:\n  - { name: h, priority: 0, binds: [X] }\n", "priority must be positive"},
		{"duplicate task", "software_tasks:\n  - { name: a, priority: 1, capacity: 1 }\nhardware_tasks:\n  - { name: a, priority: 1, binds: [X] }\n", "duplicate task name"},
		{"duplicate bind", "hardware_tasks:\n  - { name: a, priority: 1, binds: [X] }\n  - { name: b, priority: 1, binds: [X] }\n", "already bound"},
		{"no binds", "hardware_tasks:\n  - { name: a, priority: 1 }\n", "at least one"},
		{"duplicate timer type", "monotonics:\n  - { name: a, priority: 1, binds: SysTick, type: { name: T } }\n  - { name: b, priority: 1, binds: TIM2, type: { name: T } }\n", "timer type T"},
		{"dispatcher bound", "dispatchers: [X]\nhardware_tasks:\n  - { name: a, priority: 1, binds: [X] }\n", "dispatcher X is bound"},
		{"dispatcher exception", "dispatchers: [PendSV]\n", "core exception"},
		{"duplicate dispatcher", "dispatchers: [SSI0, SSI0]\nsoftware_tasks:\n  - { name: a, priority: 1, capacity: 1 }\n  - { name: b, priority: 2, capacity: 1 }\n", "duplicate dispatcher SSI0"},
		{"capacity too large", "software_tasks:\n  - { name: a, priority: 1, capacity: 300 }\n", "capacity must be at most 255"},
		{"leading digit name", "software_tasks:\n  - { name: 1task, priority: 1, capacity: 1 }\n", "must start with a letter"},
		{"name with symbols", "software_tasks:\n  - { name: \"a+b\", priority: 1, capacity: 1 }\n", "must start with a letter"},
		{"invalid bind name", "hardware_tasks:\n  - { name: h, priority: 1, binds: [UART-0] }\n", "invalid vector name"},
		{"invalid dispatcher name", "dispatchers: [\"SSI 0\"]\n", "invalid dispatcher name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestParse_NameLimits(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"max capacity", "software_tasks:\n  - { name: a, priority: 1, capacity: 255 }\n"},
		{"separators", "software_tasks:\n  - { name: uart-rx.task_1, priority: 1, capacity: 1 }\n"},
		{"leading underscore", "software_tasks:\n  - { name: _a, priority: 1, capacity: 1 }\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.NoError(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sensor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("software_tasks:\n  - { name: a, priority: 1, capacity: 2 }\n"), 0600))

	m, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, m.Path)
	assert.Equal(t, "sensor", m.App.Name, "name defaults to file name")
}

func TestLoadFile_ParseErrorCarriesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bogus: 1\n"), 0600))

	_, err := LoadFile(path)
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, path, pe.File)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParse_Hash(t *testing.T) {
	a, err := Parse([]byte(blinky))
	require.NoError(t, err)
	b, err := Parse([]byte(blinky))
	require.NoError(t, err)
	c, err := Parse([]byte(blinky + "\n# comment\n"))
	require.NoError(t, err)

	assert.Len(t, a.Hash, 64)
	assert.Equal(t, a.Hash, b.Hash)
	assert.NotEqual(t, a.Hash, c.Hash, "hash covers the source bytes")
}
