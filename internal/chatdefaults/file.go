package chatdefaults

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"labelops/internal/fsutil"
)

// FileStore keeps the map as a JSON object in a single file.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

func NewFileStore(path string) *FileStore {
	return &FileStore{path: strings.TrimSpace(path)}
}

func (s *FileStore) Path() string {
	return s.path
}

// Load returns an empty map when the file does not exist or holds a JSON value
// that is not an object. Bytes that do not parse as JSON are ErrCorruptState.
func (s *FileStore) Load(ctx context.Context) (Map, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Map{}, nil
		}
		return nil, fmt.Errorf("read chat defaults %s: %w", s.path, err)
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrCorruptState, s.path, err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return Map{}, nil
	}

	out := make(Map, len(obj))
	for k, v := range obj {
		out[k] = stringify(v)
	}
	return out, nil
}

func (s *FileStore) Save(ctx context.Context, m Map) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m == nil {
		m = Map{}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode chat defaults: %w", err)
	}
	data = append(data, '\n')
	if err := fsutil.WriteAtomic(s.path, data, fsutil.FileOptions{}); err != nil {
		return fmt.Errorf("save chat defaults: %w", err)
	}
	return nil
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
