package positions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// JSONFile keeps positions in a single indented JSON object on disk.
type JSONFile struct {
	Path string

	mu sync.Mutex
}

type positionFile struct {
	Pages map[string]int `json:"pages"`
}

// NewJSONFile returns a backend writing to path.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{Path: path}
}

// Load returns the stored positions. A missing file is an empty map.
func (f *JSONFile) Load(ctx context.Context) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, err := f.read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]int{}, nil
		}
		return nil, err
	}
	return file.Pages, nil
}

// Save rewrites the file with id set to page.
func (f *JSONFile) Save(ctx context.Context, id string, page int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return err
	}
	file, err := f.read()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	file.Pages[id] = page
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.Path, data, 0o644)
}

func (f *JSONFile) read() (positionFile, error) {
	file := positionFile{Pages: map[string]int{}}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return file, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return file, nil
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return positionFile{Pages: map[string]int{}}, err
	}
	if file.Pages == nil {
		file.Pages = map[string]int{}
	}
	return file, nil
}
