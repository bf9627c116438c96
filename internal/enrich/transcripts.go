package enrich

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"closetpicks/internal/services"
	"closetpicks/internal/services/llm"
)

// FileTranscripts reads <dir>/<video id>.json. A file holds either a bare
// segment list or an object with a "segments" list.
type FileTranscripts struct {
	dir string
}

// NewFileTranscripts returns a transcript source rooted at dir.
func NewFileTranscripts(dir string) *FileTranscripts {
	return &FileTranscripts{dir: dir}
}

// Transcript loads segments for videoID. A missing file is ErrNotFound.
func (f *FileTranscripts) Transcript(videoID string) ([]llm.Segment, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" || strings.ContainsAny(videoID, `/\`) {
		return nil, services.Wrap(services.ErrValidation, "enrich", "transcript", "invalid video id "+videoID, nil)
	}
	path := filepath.Join(f.dir, videoID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "enrich", "transcript", "no transcript for "+videoID, nil)
		}
		return nil, services.Wrap(services.ErrConfiguration, "enrich", "transcript", "read "+path, err)
	}
	data = bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] == '[' {
		var segments []llm.Segment
		if err := json.Unmarshal(data, &segments); err != nil {
			return nil, services.Wrap(services.ErrValidation, "enrich", "transcript", "decode "+path, err)
		}
		return segments, nil
	}
	var wrapper struct {
		Segments []llm.Segment `json:"segments"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, services.Wrap(services.ErrValidation, "enrich", "transcript", "decode "+path, err)
	}
	return wrapper.Segments, nil
}
