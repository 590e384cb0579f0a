package freqmap

import (
	"errors"
	"fmt"
)

// DefaultMaxSize is the distinct-key capacity used when none is configured.
const DefaultMaxSize = 1000

var (
	// ErrCapacityExceeded is returned by strict merges that could breach MaxSize.
	ErrCapacityExceeded = errors.New("result too large - potential to breach limits of the row size")

	// ErrInvalidCapacity is returned when MaxSize is not positive.
	ErrInvalidCapacity = errors.New("max size must be positive")
)

// CapacityError describes a strict merge rejected before any mutation.
type CapacityError struct {
	Acc      int
	Incoming int
	MaxSize  int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s: %d + %d keys against max size %d", ErrCapacityExceeded, e.Acc, e.Incoming, e.MaxSize)
}

func (e *CapacityError) Unwrap() error {
	return ErrCapacityExceeded
}

// MergeConfig controls a single merge call.
type MergeConfig struct {
	// MaxSize is the maximum number of distinct keys a merge result may hold.
	MaxSize int `yaml:"max_size" json:"max_size"`

	// Truncate drops new keys once MaxSize is reached. When false the merge
	// runs in strict mode and fails with ErrCapacityExceeded whenever the two
	// operand sizes together reach MaxSize, even if their keys overlap.
	Truncate bool `yaml:"truncate" json:"truncate"`
}

// DefaultMergeConfig returns a truncating config with DefaultMaxSize.
func DefaultMergeConfig() MergeConfig {
	return MergeConfig{MaxSize: DefaultMaxSize, Truncate: true}
}

// Validate checks the config before use.
func (c MergeConfig) Validate() error {
	if c.MaxSize <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidCapacity, c.MaxSize)
	}
	return nil
}

// Merge folds incoming into acc and returns acc.
//
// Counts of keys already in acc are summed. A new key is inserted while acc
// holds fewer than MaxSize keys; the first new key met after that ends the
// merge, and every later entry of incoming is dropped, including entries that
// would have matched an existing key. Summed counts saturate at
// math.MaxInt64. incoming is never modified; when acc and incoming are the
// same map, incoming is cloned first and every count is doubled once.
//
// In strict mode (Truncate false) the merge is rejected up front when
// acc.Size()+incoming.Size() >= MaxSize.
//
// A nil acc is replaced by a new map. acc is clipped to MaxSize keys in
// iteration order before merging, so the result never exceeds MaxSize.
func Merge(acc, incoming *FreqMap, cfg MergeConfig) (*FreqMap, error) {
	if err := cfg.Validate(); err != nil {
		return acc, err
	}

	if !cfg.Truncate && acc.Size()+incoming.Size() >= cfg.MaxSize {
		return acc, &CapacityError{Acc: acc.Size(), Incoming: incoming.Size(), MaxSize: cfg.MaxSize}
	}

	if acc == nil {
		acc = New(min(incoming.Size(), cfg.MaxSize))
	} else if acc == incoming {
		incoming = incoming.Clone()
	}
	acc.Truncate(cfg.MaxSize)

	for key, count := range incoming.Entries() {
		if existing, ok := acc.Lookup(key); ok {
			acc.Put(key, addCounts(existing, count))
			continue
		}
		if acc.Size() >= cfg.MaxSize {
			break
		}
		acc.Put(key, count)
	}

	return acc, nil
}

// Merged is the non-mutating form of Merge: a is cloned and left untouched.
func Merged(a, b *FreqMap, cfg MergeConfig) (*FreqMap, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	result, err := Merge(a.Clone(), b, cfg)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Aggregator is a binary operator over frequency maps with a fixed config.
type Aggregator struct {
	cfg MergeConfig
}

// NewAggregator returns an Aggregator using cfg for every call.
func NewAggregator(cfg MergeConfig) (*Aggregator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{cfg: cfg}, nil
}

// Config returns the config the Aggregator applies.
func (a *Aggregator) Config() MergeConfig {
	return a.cfg
}

// Apply merges b into acc using the Aggregator's config.
func (a *Aggregator) Apply(acc, b *FreqMap) (*FreqMap, error) {
	return Merge(acc, b, a.cfg)
}

// Fold merges every map into acc, left to right. The first error stops the fold.
func (a *Aggregator) Fold(acc *FreqMap, maps ...*FreqMap) (*FreqMap, error) {
	var err error
	for i, m := range maps {
		acc, err = a.Apply(acc, m)
		if err != nil {
			return acc, fmt.Errorf("failed to merge map %d: %w", i, err)
		}
	}
	if acc == nil {
		acc = New(0)
	}
	return acc, nil
}
