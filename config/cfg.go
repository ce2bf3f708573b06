package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/rupor-github/gencfg"
	"golang.org/x/text/encoding/ianaindex"
	yaml "gopkg.in/yaml.v3"

	"tblview/common"
	"tblview/css"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	HTTPConfig struct {
		URL     string        `yaml:"url,omitempty" validate:"omitempty,url"`
		Token   SecretString  `yaml:"token,omitempty"`
		Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
	}

	SourceConfig struct {
		HTTP           HTTPConfig `yaml:"http"`
		ForceZipCP     string     `yaml:"force_zip_cp,omitempty"`
		StylesheetPath string     `yaml:"stylesheet_path,omitempty" sanitize:"assure_file_access"`
	}

	LoaderConfig struct {
		MaxQueuedRequests   int  `yaml:"max_queued_requests" validate:"min=1"`
		NoStyles            bool `yaml:"no_styles"`
		ExcludeRowHeader    bool `yaml:"exclude_row_header"`
		ExcludeColumnHeader bool `yaml:"exclude_column_header"`
	}

	ColormapConfig struct {
		MinColor string `yaml:"min_color" validate:"required"`
		MaxColor string `yaml:"max_color" validate:"required"`
	}

	ViewConfig struct {
		ChunkRows       int            `yaml:"chunk_rows" validate:"min=1"`
		ChunkColumns    int            `yaml:"chunk_columns" validate:"min=1"`
		HeaderSeparator string         `yaml:"header_separator" validate:"required"`
		Mode            common.Mode    `yaml:"mode" validate:"gte=0"`
		Width           int            `yaml:"width" validate:"gte=0"`
		Colormap        ColormapConfig `yaml:"colormap"`
	}

	ExportConfig struct {
		Format                common.ExportFmt `yaml:"format" validate:"gte=0"`
		OutputNameTemplate    string           `yaml:"output_name_template"`
		FileNameTransliterate bool             `yaml:"file_name_transliterate"`
		Scale                 float64          `yaml:"scale" validate:"gte=0.0,lte=8.0"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Source    SourceConfig   `yaml:"source"`
		Loader    LoaderConfig   `yaml:"loader"`
		View      ViewConfig     `yaml:"view"`
		Export    ExportConfig   `yaml:"export"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above
	OutputNameTemplateFieldName TemplateFieldName = "output_name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
)

// checkValues validates fields validator tags cannot express.
func checkValues(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)

	if _, ok := css.ParseColor(cfg.View.Colormap.MinColor); !ok {
		sl.ReportError(cfg.View.Colormap.MinColor, "MinColor", "min_color", "css_color", "")
	}
	if _, ok := css.ParseColor(cfg.View.Colormap.MaxColor); !ok {
		sl.ReportError(cfg.View.Colormap.MaxColor, "MaxColor", "max_color", "css_color", "")
	}
	if len(cfg.Source.ForceZipCP) > 0 {
		if _, err := ianaindex.IANA.Encoding(cfg.Source.ForceZipCP); err != nil {
			sl.ReportError(cfg.Source.ForceZipCP, "ForceZipCP", "force_zip_cp", "iana_charset", "")
		}
	}
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg, gencfg.WithAdditionalChecks(checkValues)); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration tamplate to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
