// Package common keeps enums shared by configuration, rendering and command
// line, so neither of them has to import the other.
package common

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidEnum is wrapped by all Parse functions.
var ErrInvalidEnum = errors.New("not a valid enum value")

// Specification of cell coloring.
// ENUM(plain, styled, colormap)
type Mode int

const (
	ModePlain Mode = iota
	ModeStyled
	ModeColormap
)

var modeNames = []string{"plain", "styled", "colormap"}

// ModeNames returns list of possible string values of Mode.
func ModeNames() []string {
	return append([]string(nil), modeNames...)
}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode attempts to convert a string to a Mode.
func ParseMode(name string) (Mode, error) {
	for i, n := range modeNames {
		if strings.EqualFold(n, name) {
			return Mode(i), nil
		}
	}
	return Mode(0), fmt.Errorf("%s is %w", name, ErrInvalidEnum)
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	v, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Specification of export output type.
// ENUM(text, svg, png, ion)
type ExportFmt int

const (
	ExportFmtText ExportFmt = iota
	ExportFmtSvg
	ExportFmtPng
	ExportFmtIon
)

var exportFmtNames = []string{"text", "svg", "png", "ion"}

// ExportFmtNames returns list of possible string values of ExportFmt.
func ExportFmtNames() []string {
	return append([]string(nil), exportFmtNames...)
}

func (f ExportFmt) String() string {
	if f >= 0 && int(f) < len(exportFmtNames) {
		return exportFmtNames[f]
	}
	return fmt.Sprintf("ExportFmt(%d)", int(f))
}

// ParseExportFmt attempts to convert a string to a ExportFmt.
func ParseExportFmt(name string) (ExportFmt, error) {
	for i, n := range exportFmtNames {
		if strings.EqualFold(n, name) {
			return ExportFmt(i), nil
		}
	}
	return ExportFmt(0), fmt.Errorf("%s is %w", name, ErrInvalidEnum)
}

func (f ExportFmt) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *ExportFmt) UnmarshalText(text []byte) error {
	v, err := ParseExportFmt(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Ext returns file extension for exported output.
func (f ExportFmt) Ext() string {
	switch f {
	case ExportFmtSvg:
		return ".svg"
	case ExportFmtPng:
		return ".png"
	case ExportFmtIon:
		return ".ion"
	default:
		return ".txt"
	}
}
