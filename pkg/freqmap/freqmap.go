// Package freqmap implements frequency maps (string key to occurrence count)
// and the bounded merge operator used to combine them across shards.
package freqmap

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"sort"
	"strings"
)

// ErrNegativeCount is returned when decoding a map that holds a negative count.
var ErrNegativeCount = errors.New("negative count")

// FreqMap maps a key to the number of times it was observed.
//
// Iteration follows insertion order: a key keeps the position of the first
// Put that created it, even when its count is later overwritten. Merge relies
// on this to make truncation reproducible.
//
// A FreqMap is not safe for concurrent use. The zero value is an empty map
// ready to use.
type FreqMap struct {
	keys   []string
	counts map[string]int64
}

// New returns an empty FreqMap with room for sizeHint keys.
func New(sizeHint int) *FreqMap {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &FreqMap{
		keys:   make([]string, 0, sizeHint),
		counts: make(map[string]int64, sizeHint),
	}
}

// FromMap builds a FreqMap from a plain map. Keys are inserted in sorted order
// so the result does not depend on Go's map iteration order.
func FromMap(m map[string]int64) *FreqMap {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fm := New(len(keys))
	for _, k := range keys {
		fm.Put(k, m[k])
	}
	return fm
}

// FromInts is FromMap for the map[string]int shape produced by word counters.
func FromInts(m map[string]int) *FreqMap {
	converted := make(map[string]int64, len(m))
	for k, v := range m {
		converted[k] = int64(v)
	}
	return FromMap(converted)
}

// Size returns the number of distinct keys.
func (fm *FreqMap) Size() int {
	if fm == nil {
		return 0
	}
	return len(fm.keys)
}

// Get returns the count for key, or 0 when key is absent.
func (fm *FreqMap) Get(key string) int64 {
	if fm == nil {
		return 0
	}
	return fm.counts[key]
}

// Lookup returns the count for key and whether it is present.
func (fm *FreqMap) Lookup(key string) (int64, bool) {
	if fm == nil {
		return 0, false
	}
	count, ok := fm.counts[key]
	return count, ok
}

// ContainsKey reports whether key is present.
func (fm *FreqMap) ContainsKey(key string) bool {
	_, ok := fm.Lookup(key)
	return ok
}

// Put inserts key or overwrites its count. The caller guarantees count >= 0.
func (fm *FreqMap) Put(key string, count int64) {
	if fm.counts == nil {
		fm.counts = make(map[string]int64)
	}
	if _, ok := fm.counts[key]; !ok {
		fm.keys = append(fm.keys, key)
	}
	fm.counts[key] = count
}

// Add increments the count for key by delta, inserting it when absent.
// The sum saturates at math.MaxInt64.
func (fm *FreqMap) Add(key string, delta int64) {
	fm.Put(key, addCounts(fm.Get(key), delta))
}

// addCounts sums two non-negative counts, clamping at math.MaxInt64.
func addCounts(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// Entries returns a fresh sequence over (key, count) pairs in insertion order.
func (fm *FreqMap) Entries() iter.Seq2[string, int64] {
	return func(yield func(string, int64) bool) {
		if fm == nil {
			return
		}
		for _, k := range fm.keys {
			if !yield(k, fm.counts[k]) {
				return
			}
		}
	}
}

// Keys returns a copy of the keys in insertion order.
func (fm *FreqMap) Keys() []string {
	if fm == nil {
		return nil
	}
	keys := make([]string, len(fm.keys))
	copy(keys, fm.keys)
	return keys
}

// Total returns the sum of all counts.
func (fm *FreqMap) Total() int64 {
	var total int64
	for _, count := range fm.Entries() {
		total += count
	}
	return total
}

// Clone returns a deep copy that preserves iteration order.
func (fm *FreqMap) Clone() *FreqMap {
	clone := New(fm.Size())
	for k, v := range fm.Entries() {
		clone.Put(k, v)
	}
	return clone
}

// ToMap returns the contents as a plain map.
func (fm *FreqMap) ToMap() map[string]int64 {
	m := make(map[string]int64, fm.Size())
	for k, v := range fm.Entries() {
		m[k] = v
	}
	return m
}

// Equal reports whether both maps hold the same keys with the same counts.
// Iteration order is ignored.
func (fm *FreqMap) Equal(other *FreqMap) bool {
	if fm.Size() != other.Size() {
		return false
	}
	for k, v := range fm.Entries() {
		if c, ok := other.Lookup(k); !ok || c != v {
			return false
		}
	}
	return true
}

// Truncate drops every key after the first n in iteration order.
func (fm *FreqMap) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if fm.Size() <= n {
		return
	}
	for _, k := range fm.keys[n:] {
		delete(fm.counts, k)
	}
	fm.keys = fm.keys[:n]
}

// Entry is a single key and its count.
type Entry struct {
	Key   string
	Count int64
}

// TopN returns the n highest counts, ties broken by key.
func (fm *FreqMap) TopN(n int) []Entry {
	entries := make([]Entry, 0, fm.Size())
	for k, v := range fm.Entries() {
		entries = append(entries, Entry{Key: k, Count: v})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Key < entries[j].Key
	})

	if n < 0 {
		n = 0
	}
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// String formats the map as {k:v, ...} in iteration order.
func (fm *FreqMap) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	i := 0
	for k, v := range fm.Entries() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%q:%d", k, v)
		i++
	}
	sb.WriteString("}")
	return sb.String()
}
