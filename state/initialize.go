package state

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"
)

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start: time.Now(),
		Log:   zap.NewNop(),
	}
}

// LoadResources resolves configuration values which refer to outside
// resources. Since zip "standard" does not define file name encoding we may
// need to force archaic code page for old archives.
func (e *LocalEnv) LoadResources() error {
	if e.Cfg == nil {
		return errors.New("configuration is not loaded")
	}

	e.CodePage = nil
	if cp := e.Cfg.Source.ForceZipCP; len(cp) > 0 {
		enc, err := ianaindex.IANA.Encoding(cp)
		if err != nil || enc == nil {
			e.Log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
		} else {
			e.CodePage = enc
			n, _ := ianaindex.IANA.Name(enc)
			e.Log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}

	e.Stylesheet = ""
	if path := e.Cfg.Source.StylesheetPath; len(path) > 0 {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("unable to read stylesheet from %q: %w", path, err)
		}
		e.Stylesheet = string(data)
		if err := e.Rpt.StoreCopy("stylesheet.css", path); err != nil {
			e.Log.Debug("Unable to store stylesheet in report", zap.Error(err))
		}
	}
	return nil
}
