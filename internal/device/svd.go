package device

import (
	"encoding/xml"
	"strconv"
	"strings"
)

// The subset of CMSIS-SVD needed to resolve interrupt names and the number
// of implemented NVIC priority bits.

type deviceElement struct {
	Name        string             `xml:"name"`
	Description string             `xml:"description"`
	Series      string             `xml:"series"`
	Vendor      string             `xml:"vendor"`
	CPU         cpuElement         `xml:"cpu"`
	Peripherals peripheralsElement `xml:"peripherals"`
}

type cpuElement struct {
	Name                string  `xml:"name"`
	Revision            string  `xml:"revision"`
	NVICPriorityBits    integer `xml:"nvicPrioBits"`
	VendorSystickConfig bool    `xml:"vendorSystickConfig"`
}

type peripheralsElement struct {
	Elements []peripheralElement `xml:"peripheral"`
}

type peripheralElement struct {
	Name        string             `xml:"name"`
	Interrupts  []interruptElement `xml:"interrupt"`
	DerivedFrom string             `xml:"derivedFrom,attr"`
}

type interruptElement struct {
	Name        string  `xml:"name"`
	Description string  `xml:"description"`
	Value       integer `xml:"value"`
}

// integer decodes SVD scalars written in decimal or 0x-prefixed hex.
type integer int64

func (i *integer) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var v string
	if err := d.DecodeElement(&v, &start); err != nil {
		return err
	}
	value, err := parseInteger(v)
	if err != nil {
		return err
	}
	*i = integer(value)
	return nil
}

func parseInteger(v string) (int64, error) {
	v = strings.TrimSpace(v)
	lower := strings.ToLower(v)
	if strings.HasPrefix(lower, "0x") {
		return strconv.ParseInt(lower[2:], 16, 64)
	}
	return strconv.ParseInt(v, 10, 64)
}
