package capture

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

const defaultFileChunkSize = 16 * 1024

// fileTypes covers audio extensions missing from the platform MIME tables
var fileTypes = map[string]string{
	".wav":  "audio/wav",
	".wave": "audio/wav",
	".ogg":  "audio/ogg",
	".opus": "audio/ogg",
	".webm": "audio/webm",
}

// FileDevice replays a recorded file as a sequence of chunks
type FileDevice struct {
	path      string
	mimeType  string
	chunkSize int
	autoStop  bool // end the recording once the file is exhausted

	data []byte
}

// NewFileDevice creates a device that replays path.
// An empty mimeType is derived from the file extension.
func NewFileDevice(path, mimeType string, autoStop bool) *FileDevice {
	return &FileDevice{
		path:      path,
		mimeType:  mimeType,
		chunkSize: defaultFileChunkSize,
		autoStop:  autoStop,
	}
}

// Open reads the file into memory
func (f *FileDevice) Open(ctx context.Context) (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", fmt.Errorf("failed to read input file %s: %w", f.path, err)
	}
	f.data = data

	if f.mimeType == "" {
		ext := strings.ToLower(filepath.Ext(f.path))
		if t, ok := fileTypes[ext]; ok {
			f.mimeType = t
		} else {
			f.mimeType = mime.TypeByExtension(ext)
		}
	}

	return f.mimeType, nil
}

// Record sends the file in fixed-size chunks, then waits for the stop unless autoStop is set
func (f *FileDevice) Record(ctx context.Context, chunks chan<- Chunk) error {
	if f.data == nil {
		return ErrNotOpen
	}

	for offset := 0; offset < len(f.data); offset += f.chunkSize {
		if ctx.Err() != nil {
			return nil
		}

		end := offset + f.chunkSize
		if end > len(f.data) {
			end = len(f.data)
		}
		chunks <- Chunk{Data: f.data[offset:end], MimeType: f.mimeType}
	}

	if !f.autoStop {
		<-ctx.Done()
	}
	return nil
}

// Close drops the buffered file
func (f *FileDevice) Close() error {
	f.data = nil
	return nil
}
