package store

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"closetpicks/internal/dataset"
	"closetpicks/internal/fileutil"
	"closetpicks/internal/logging"
	"closetpicks/internal/services"
)

// Document file names inside the data directory.
const (
	CatalogFile    = "catalog.json"
	GuestsFile     = "guests.json"
	RawPicksFile   = "picks_raw.json"
	PicksFile      = "picks.json"
	CheckpointFile = ".extraction_progress.json"
)

// DocumentFiles lists the dataset documents in write order.
var DocumentFiles = []string{CatalogFile, GuestsFile, RawPicksFile, PicksFile}

const documentMode = 0o644

// Store is the file-backed document store for one data directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// Open returns a store rooted at dir, which must exist.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "store", "open", "data directory unavailable", err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrConfiguration, "store", "open", dir+" is not a directory", nil)
	}
	return &Store{dir: dir, logger: logging.NewComponentLogger(logger, "store")}, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the absolute location of a document.
func (s *Store) Path(name string) string { return filepath.Join(s.dir, name) }

// Load reads every document. Missing documents load as empty collections.
// The snapshot is normalized before it is returned.
func (s *Store) Load() (*dataset.Dataset, error) {
	ds := &dataset.Dataset{}
	if err := s.readDocument(CatalogFile, &ds.Catalog); err != nil {
		return nil, err
	}
	if err := s.readDocument(GuestsFile, &ds.Guests); err != nil {
		return nil, err
	}
	if err := s.readDocument(RawPicksFile, &ds.RawPicks); err != nil {
		return nil, err
	}
	if err := s.readDocument(PicksFile, &ds.Picks); err != nil {
		return nil, err
	}
	ds.Normalize()
	s.logger.Debug("dataset loaded",
		slog.Int("catalog", len(ds.Catalog)),
		slog.Int("guests", len(ds.Guests)),
		slog.Int("raw_picks", len(ds.RawPicks)),
		slog.Int("picks", len(ds.Picks)),
	)
	return ds, nil
}

func (s *Store) readDocument(name string, dst any) error {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return services.Wrap(services.ErrValidation, "store", "decode", name, err)
	}
	return nil
}

// Documents encodes ds into its four documents, keyed by file name.
func Documents(ds *dataset.Dataset) (map[string][]byte, error) {
	docs := make(map[string][]byte, len(DocumentFiles))
	var err error
	if docs[CatalogFile], err = Encode(nonNil(ds.Catalog)); err != nil {
		return nil, fmt.Errorf("encode %s: %w", CatalogFile, err)
	}
	if docs[GuestsFile], err = Encode(nonNil(ds.Guests)); err != nil {
		return nil, fmt.Errorf("encode %s: %w", GuestsFile, err)
	}
	if docs[RawPicksFile], err = Encode(nonNil(ds.RawPicks)); err != nil {
		return nil, fmt.Errorf("encode %s: %w", RawPicksFile, err)
	}
	if docs[PicksFile], err = Encode(nonNil(ds.Picks)); err != nil {
		return nil, fmt.Errorf("encode %s: %w", PicksFile, err)
	}
	return docs, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// Encode renders v with two-space indentation, unescaped HTML characters,
// and a trailing newline.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes every document whose encoding differs from what is on disk.
// It returns the names of the documents written.
func (s *Store) Save(ds *dataset.Dataset) ([]string, error) {
	docs, err := Documents(ds)
	if err != nil {
		return nil, err
	}
	var written []string
	for _, name := range DocumentFiles {
		data := docs[name]
		if current, err := os.ReadFile(s.Path(name)); err == nil && bytes.Equal(current, data) {
			continue
		}
		if err := fileutil.WriteFileAtomic(s.Path(name), data, documentMode); err != nil {
			return written, fmt.Errorf("write %s: %w", name, err)
		}
		written = append(written, name)
	}
	s.logger.Info("dataset saved", slog.Any("written", written))
	return written, nil
}

// ReadRaw returns the on-disk bytes of a document, or nil when it does not
// exist.
func (s *Store) ReadRaw(name string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

// Backup copies the current documents into dir, verifying each copy.
// Documents that do not exist yet are skipped.
func (s *Store) Backup(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}
	for _, name := range DocumentFiles {
		src := s.Path(name)
		if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := fileutil.CopyFileVerified(src, filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("backup %s: %w", name, err)
		}
	}
	s.logger.Debug("documents backed up", slog.String("dir", dir))
	return nil
}
