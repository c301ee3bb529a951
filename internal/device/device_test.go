package device

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/bootseq/pkg/core"
)

func TestLoadSVD(t *testing.T) {
	d, err := LoadSVD(filepath.Join("testdata", "lm3s6965.svd"))
	require.NoError(t, err)

	assert.Equal(t, "LM3S6965", d.Name)
	assert.Equal(t, "CM3", d.CPU)
	assert.Equal(t, 3, d.PriorityBits)

	for _, name := range []string{"GPIOA", "UART0", "UART1", "TIMER0A", "TIMER0B", "SSI0", "QEI0"} {
		assert.True(t, d.HasInterrupt(name), name)
	}
	assert.False(t, d.HasInterrupt("UART2"))

	n, ok := d.Number("QEI0")
	require.True(t, ok)
	assert.Equal(t, 13, n)

	irqs := d.Interrupts()
	require.Len(t, irqs, 7)
	assert.Equal(t, "GPIOA", irqs[0].Name)
	assert.Equal(t, "TIMER0B", irqs[len(irqs)-1].Name)
}

func TestReadSVD_Invalid(t *testing.T) {
	_, err := ReadSVD(strings.NewReader("<device></device>"))
	assert.Error(t, err)

	_, err = ReadSVD(strings.NewReader("not xml"))
	assert.Error(t, err)
}

func TestLoadSVD_Missing(t *testing.T) {
	_, err := LoadSVD(filepath.Join(t.TempDir(), "none.svd"))
	assert.Error(t, err)
}

func TestHasException(t *testing.T) {
	tests := []struct {
		cpu  string
		name string
		want bool
	}{
		{"CM3", core.ExceptionBusFault, true},
		{"CM3", core.ExceptionSysTick, true},
		{"CM3", core.ExceptionSecureFault, false},
		{"CM33", core.ExceptionSecureFault, true},
		{"CM0", core.ExceptionBusFault, false},
		{"CM0PLUS", core.ExceptionPendSV, true},
		{"CM4", "UART0", false},
	}

	for _, tt := range tests {
		t.Run(tt.cpu+"/"+tt.name, func(t *testing.T) {
			d := New("test", tt.cpu, 4, nil)
			assert.Equal(t, tt.want, d.HasException(tt.name))
		})
	}
}

func TestParseInteger(t *testing.T) {
	for in, want := range map[string]int64{"7": 7, "0x1F": 31, " 0X10 ": 16} {
		got, err := parseInteger(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseInteger("zz")
	assert.Error(t, err)
}
