package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dtnitsch/freqmerge/pkg/freqmap"
	"gopkg.in/yaml.v3"
)

// ShardExt is the extension of binary shard files.
const ShardExt = ".shard"

// ErrUnknownFormat is returned for files that are not shard, YAML or JSON.
var ErrUnknownFormat = errors.New("unknown shard format")

type Storage struct{}

func (s *Storage) SaveFile(filePath string, content []byte) error {
	if err := os.WriteFile(filePath, content, 0644); err != nil {
		return fmt.Errorf("error saving file: %w", err)
	}
	return nil
}

func (s *Storage) ReadFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	return data, nil
}

// IsShardFile reports whether path has a format LoadShard understands.
func IsShardFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ShardExt, ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// SaveShard writes fm to path, choosing the encoding from the extension.
// Every encoding keeps the map's iteration order.
func (s *Storage) SaveShard(path string, fm *freqmap.FreqMap) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ShardExt:
		data, err = fm.MarshalBinary()
	case ".yaml", ".yml":
		data, err = yaml.Marshal(fm)
	case ".json":
		data, err = json.MarshalIndent(fm, "", "  ")
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	if err != nil {
		return fmt.Errorf("failed to encode shard %s: %w", path, err)
	}

	return s.SaveFile(path, data)
}

// LoadShard reads a shard written by SaveShard.
func (s *Storage) LoadShard(path string) (*freqmap.FreqMap, error) {
	data, err := s.ReadFile(path)
	if err != nil {
		return nil, err
	}

	fm := freqmap.New(0)
	switch strings.ToLower(filepath.Ext(path)) {
	case ShardExt:
		err = fm.UnmarshalBinary(data)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fm)
	case ".json":
		err = json.Unmarshal(data, fm)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode shard %s: %w", path, err)
	}

	return fm, nil
}
