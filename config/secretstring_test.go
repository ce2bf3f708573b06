package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	yaml "gopkg.in/yaml.v3"
)

func TestSecretString_Marshal(t *testing.T) {
	tests := []struct {
		name     string
		input    SecretString
		wantJSON string
		wantYAML string
		wantStr  string
	}{
		{"empty", "", "null", "null\n", ""},
		{"short", "x", `"` + SecretStringValue + `"`, SecretStringValue + "\n", SecretStringValue},
		{"token", "eyJhbGciOiJIUzI1NiJ9.payload.sig", `"` + SecretStringValue + `"`, SecretStringValue + "\n", SecretStringValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.input.MarshalJSON()
			if err != nil || string(got) != tt.wantJSON {
				t.Errorf("MarshalJSON() = %s, %v, want %s", got, err, tt.wantJSON)
			}
			data, err := yaml.Marshal(tt.input)
			if err != nil || string(data) != tt.wantYAML {
				t.Errorf("yaml.Marshal() = %q, %v, want %q", data, err, tt.wantYAML)
			}
			if tt.input.String() != tt.wantStr {
				t.Errorf("String() = %q, want %q", tt.input.String(), tt.wantStr)
			}
			if tt.input.Reveal() != string(tt.input) {
				t.Errorf("Reveal() = %q", tt.input.Reveal())
			}
		})
	}
}

func TestSecretString_NoLeakage(t *testing.T) {
	const secret = "super-secret-token"
	cfg := Config{Source: SourceConfig{HTTP: HTTPConfig{URL: "http://localhost", Token: secret}}}

	j, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	y, err := Dump(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	for name, out := range map[string]string{
		"json":   string(j),
		"yaml":   string(y),
		"format": fmt.Sprintf("%v %s", cfg.Source.HTTP.Token, cfg.Source.HTTP.Token),
	} {
		if strings.Contains(out, secret) {
			t.Errorf("%s output leaks secret: %s", name, out)
		}
	}
}
