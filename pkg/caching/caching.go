package caching

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dtnitsch/freqmerge/pkg/freqmap"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	groupField protowire.Number = 1
	shardField protowire.Number = 2
)

var errCorruptEntry = errors.New("corrupt cache entry")

// Cache stores the shards built from remote sources on disk with a TTL.
// Entries are keyed by source and variant, so changing tokenizer or
// detector settings never returns a stale shard.
type Cache struct {
	path    string
	ttl     time.Duration
	variant string
}

// NewCache creates a new Cache instance.
// The cache path will be created if it doesn't exist.
func NewCache(path string, ttl time.Duration, variant string) (*Cache, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{
		path:    path,
		ttl:     ttl,
		variant: variant,
	}, nil
}

// key generates a SHA256 hash of the source and variant to use as a filename.
func (c *Cache) key(source string) string {
	hash := sha256.Sum256([]byte(c.variant + "\x00" + source))
	return fmt.Sprintf("%x.shard", hash)
}

// Get returns the cached group and shard for source.
// Expired, missing and unreadable entries are all misses.
func (c *Cache) Get(source string) (string, *freqmap.FreqMap, bool) {
	filePath := filepath.Join(c.path, c.key(source))

	info, err := os.Stat(filePath)
	if err != nil {
		return "", nil, false
	}
	if time.Since(info.ModTime()) > c.ttl {
		return "", nil, false
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", nil, false
	}

	group, shard, err := decode(data)
	if err != nil {
		return "", nil, false
	}
	return group, shard, true
}

// Set stores the group and shard built for source.
func (c *Cache) Set(source, group string, shard *freqmap.FreqMap) error {
	shardBytes, err := shard.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode shard: %w", err)
	}

	var data []byte
	data = protowire.AppendTag(data, groupField, protowire.BytesType)
	data = protowire.AppendString(data, group)
	data = protowire.AppendTag(data, shardField, protowire.BytesType)
	data = protowire.AppendBytes(data, shardBytes)

	filePath := filepath.Join(c.path, c.key(source))
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	return nil
}

func decode(data []byte) (string, *freqmap.FreqMap, error) {
	var group string
	var shard *freqmap.FreqMap

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 || typ != protowire.BytesType {
			return "", nil, errCorruptEntry
		}
		data = data[n:]

		value, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return "", nil, errCorruptEntry
		}
		data = data[n:]

		switch num {
		case groupField:
			group = string(value)
		case shardField:
			shard = freqmap.New(0)
			if err := shard.UnmarshalBinary(value); err != nil {
				return "", nil, err
			}
		}
	}

	if group == "" || shard == nil {
		return "", nil, errCorruptEntry
	}
	return group, shard, nil
}
