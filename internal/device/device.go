// Package device describes target microcontrollers: the peripheral
// interrupt name space, the core's configurable exceptions and the number of
// implemented NVIC priority bits.
package device

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/leapstack-labs/bootseq/pkg/core"
)

// Interrupt is a peripheral interrupt line.
type Interrupt struct {
	Name        string
	Number      int
	Description string
}

// Device is a resolved target description.
type Device struct {
	Name string
	// CPU is the core name as written in the SVD file (e.g. CM4, CM33)
	CPU string
	// PriorityBits is the number of implemented NVIC priority bits, 0 if unknown
	PriorityBits int
	interrupts   map[string]Interrupt
}

// New builds a device from a list of interrupts.
func New(name, cpu string, priorityBits int, interrupts []Interrupt) *Device {
	d := &Device{
		Name:         name,
		CPU:          cpu,
		PriorityBits: priorityBits,
		interrupts:   make(map[string]Interrupt, len(interrupts)),
	}
	for _, irq := range interrupts {
		d.interrupts[irq.Name] = irq
	}
	return d
}

// LoadSVD reads a CMSIS-SVD file.
func LoadSVD(path string) (*Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open device file: %w", err)
	}
	defer f.Close()

	d, err := ReadSVD(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// ReadSVD decodes a CMSIS-SVD document.
func ReadSVD(r io.Reader) (*Device, error) {
	var elem deviceElement
	if err := xml.NewDecoder(r).Decode(&elem); err != nil {
		return nil, fmt.Errorf("xml decode error: %w", err)
	}
	if elem.Name == "" {
		return nil, fmt.Errorf("not an SVD device description")
	}

	var irqs []Interrupt
	for _, p := range elem.Peripherals.Elements {
		for _, irq := range p.Interrupts {
			irqs = append(irqs, Interrupt{
				Name:        irq.Name,
				Number:      int(irq.Value),
				Description: strings.TrimSpace(irq.Description),
			})
		}
	}
	return New(elem.Name, elem.CPU.Name, int(elem.CPU.NVICPriorityBits), irqs), nil
}

// HasInterrupt reports whether name is a peripheral interrupt of the device.
func (d *Device) HasInterrupt(name string) bool {
	_, ok := d.interrupts[name]
	return ok
}

// HasException reports whether the core implements a configurable
// exception. ARMv6-M and ARMv8-M baseline cores only have SVCall, PendSV and
// SysTick; SecureFault exists only on ARMv8-M mainline cores.
func (d *Device) HasException(name string) bool {
	if !core.IsException(name) {
		return false
	}
	cpu := strings.ToUpper(d.CPU)
	switch {
	case isBaseline(cpu):
		return name == core.ExceptionSVCall || name == core.ExceptionPendSV || name == core.ExceptionSysTick
	case name == core.ExceptionSecureFault:
		return isMainlineV8(cpu)
	default:
		return true
	}
}

// Interrupts returns the device interrupts ordered by number.
func (d *Device) Interrupts() []Interrupt {
	out := make([]Interrupt, 0, len(d.interrupts))
	for _, irq := range d.interrupts {
		out = append(out, irq)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Number != out[j].Number {
			return out[i].Number < out[j].Number
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Number returns the interrupt number of name.
func (d *Device) Number(name string) (int, bool) {
	irq, ok := d.interrupts[name]
	return irq.Number, ok
}

func isBaseline(cpu string) bool {
	for _, c := range []string{"CM0", "CM0PLUS", "CM0+", "CM1", "CM23"} {
		if cpu == c {
			return true
		}
	}
	return false
}

func isMainlineV8(cpu string) bool {
	for _, c := range []string{"CM33", "CM35P", "CM55", "CM85"} {
		if cpu == c {
			return true
		}
	}
	return false
}
