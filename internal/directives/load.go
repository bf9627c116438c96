package directives

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"closetpicks/internal/services"
)

//go:embed builtin.yaml
var builtinYAML []byte

var (
	builtinOnce  sync.Once
	builtinTable *Table
	builtinErr   error
)

// Builtin returns the embedded directive table. Callers must not mutate it.
func Builtin() (*Table, error) {
	builtinOnce.Do(func() {
		var t Table
		if err := yaml.Unmarshal(builtinYAML, &t); err != nil {
			builtinErr = fmt.Errorf("parse builtin directives: %w", err)
			return
		}
		if err := t.Validate(); err != nil {
			builtinErr = fmt.Errorf("builtin directives: %w", err)
			return
		}
		builtinTable = &t
	})
	return builtinTable, builtinErr
}

// Source serves the built-in table extended with an optional operator file.
// The file is re-read when its modification time changes.
type Source struct {
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
	loaded time.Time
	table  *Table
}

// NewSource constructs a source. An empty path serves the built-in table only.
func NewSource(path string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{path: strings.TrimSpace(path), logger: logger}
}

// Path reports the operator file backing the source, if any.
func (s *Source) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Table returns the current directive table.
func (s *Source) Table() (*Table, error) {
	base, err := Builtin()
	if err != nil {
		return nil, err
	}
	if s == nil || s.path == "" {
		return base, nil
	}
	if err := s.ensureLoaded(base); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.table == nil {
		return base, nil
	}
	return s.table, nil
}

func (s *Source) ensureLoaded(base *Table) error {
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return services.Wrap(services.ErrConfiguration, "directives", "load",
				fmt.Sprintf("directives file %s does not exist", s.path), nil)
		}
		return err
	}

	s.mu.RLock()
	alreadyLoaded := !s.loaded.IsZero() && s.loaded.Equal(info.ModTime())
	s.mu.RUnlock()
	if alreadyLoaded {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	extra, err := Parse(data, filepath.Ext(s.path))
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "directives", "load", "parse "+s.path, err)
	}
	merged := base.Extend(extra)
	if err := merged.Validate(); err != nil {
		return fmt.Errorf("%s: %w", s.path, err)
	}

	s.mu.Lock()
	s.table = merged
	s.loaded = info.ModTime()
	s.mu.Unlock()
	s.logger.Info("loaded directives",
		slog.String("path", s.path),
		slog.Int("count", extra.Len()),
		slog.Int("total", merged.Len()),
	)
	return nil
}

// Parse decodes a directive table. ext selects the format: ".json" for JSON,
// anything else for YAML. JSON input may wrap the table in a "directives"
// object.
func Parse(data []byte, ext string) (*Table, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	var t Table
	if len(bytes.TrimSpace(data)) == 0 {
		return &t, nil
	}
	if strings.EqualFold(ext, ".json") {
		var wrapper struct {
			Directives *Table `json:"directives"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, err
		}
		if wrapper.Directives != nil {
			return wrapper.Directives, nil
		}
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, err
		}
		return &t, nil
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
