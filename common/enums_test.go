package common

import (
	"errors"
	"testing"
)

func TestParseMode(t *testing.T) {
	for _, name := range ModeNames() {
		m, err := ParseMode(name)
		if err != nil {
			t.Fatalf("ParseMode(%q) error = %v", name, err)
		}
		if m.String() != name {
			t.Errorf("round trip of %q gave %q", name, m)
		}
	}
	if m, err := ParseMode("Styled"); err != nil || m != ModeStyled {
		t.Errorf("ParseMode is expected to ignore case, got %v, %v", m, err)
	}
	if _, err := ParseMode("rainbow"); !errors.Is(err, ErrInvalidEnum) {
		t.Errorf("expected ErrInvalidEnum, got %v", err)
	}
}

func TestMode_Text(t *testing.T) {
	var m Mode
	if err := m.UnmarshalText([]byte("colormap")); err != nil || m != ModeColormap {
		t.Errorf("UnmarshalText() = %v, %v", m, err)
	}
	if err := m.UnmarshalText([]byte("bad")); err == nil {
		t.Error("expected error")
	}
	if m != ModeColormap {
		t.Error("failed unmarshal must not change value")
	}
	if text, _ := ModeStyled.MarshalText(); string(text) != "styled" {
		t.Errorf("MarshalText() = %s", text)
	}
	if Mode(42).String() != "Mode(42)" {
		t.Errorf("unexpected string for unknown value: %s", Mode(42))
	}
}

func TestExportFmt(t *testing.T) {
	tests := []struct {
		name string
		fmt  ExportFmt
		ext  string
	}{
		{"text", ExportFmtText, ".txt"},
		{"svg", ExportFmtSvg, ".svg"},
		{"png", ExportFmtPng, ".png"},
		{"ion", ExportFmtIon, ".ion"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseExportFmt(tt.name)
			if err != nil || f != tt.fmt {
				t.Fatalf("ParseExportFmt(%q) = %v, %v", tt.name, f, err)
			}
			if f.Ext() != tt.ext {
				t.Errorf("Ext() = %s, want %s", f.Ext(), tt.ext)
			}
		})
	}
	if _, err := ParseExportFmt("pdf"); !errors.Is(err, ErrInvalidEnum) {
		t.Errorf("expected ErrInvalidEnum, got %v", err)
	}
}
