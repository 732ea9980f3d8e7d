// Package idmap implements the cursor map: a range map from ID ranges
// (client, counter) to the tree leaf currently holding the item that owns
// that range. It is the sole mechanism the YATA integrator uses to
// resolve an anchor to a tree position, and the sole destination of a
// rle.Tree's Notifier callback.
package idmap

import (
	"encoding/binary"

	iradix "github.com/AnatolyRugalev/go-iradix-generic/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mbrt/yatatree/rle"
)

const keyLen = 12 // 8 bytes client, big-endian ++ 4 bytes counter, big-endian.

// encodeKey renders (client, counter) so that byte-wise dictionary order
// on the result matches (client, counter) order: client occupies the high
// bytes, so two keys never interleave across a client boundary.
func encodeKey(client uint64, counter uint32) []byte {
	b := make([]byte, keyLen)
	binary.BigEndian.PutUint64(b[0:8], client)
	binary.BigEndian.PutUint32(b[8:12], counter)
	return b
}

func decodeKey(b []byte) (client uint64, counter uint32) {
	client = binary.BigEndian.Uint64(b[0:8])
	counter = binary.BigEndian.Uint32(b[8:12])
	return
}

type entry[T rle.Item[T]] struct {
	client               uint64
	counterFrom, counterTo uint32
	leaf                 *rle.Leaf[T]
}

const cacheSize = 256

// Map is the cursor map for items of type T. The zero value is not usable;
// construct with New.
type Map[T rle.Item[T]] struct {
	tree  *iradix.Tree[byte, entry[T]]
	cache *lru.Cache[uint64, entry[T]]
}

// New returns an empty cursor map.
func New[T rle.Item[T]]() *Map[T] {
	c, err := lru.New[uint64, entry[T]](cacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which cacheSize
		// never is.
		panic(err)
	}
	return &Map[T]{tree: iradix.New[byte, entry[T]](), cache: c}
}

// Set records that the half-open counter range [counterFrom, counterTo)
// of client is now owned by leaf, overwriting any entry that previously
// claimed any part of that range.
func (m *Map[T]) Set(client uint64, counterFrom, counterTo uint32, leaf *rle.Leaf[T]) {
	if counterFrom >= counterTo {
		return
	}
	txn := m.tree.Txn()
	for _, key := range m.overlapping(client, counterFrom, counterTo) {
		txn.Delete(key)
	}
	e := entry[T]{client: client, counterFrom: counterFrom, counterTo: counterTo, leaf: leaf}
	txn.Insert(encodeKey(client, counterFrom), e)
	m.tree = txn.Commit()
	m.cache.Purge()
}

// overlapping returns the keys of every stored entry for client whose
// range intersects [from, to).
func (m *Map[T]) overlapping(client uint64, from, to uint32) [][]byte {
	var keys [][]byte
	it := m.tree.Root().Iterator()
	it.SeekLowerBound(encodeKey(client, 0))
	for {
		key, e, ok := it.Next()
		if !ok || e.client != client {
			break
		}
		if e.counterFrom >= to {
			break
		}
		if e.counterTo > from {
			keys = append(keys, append([]byte(nil), key...))
		}
	}
	return keys
}

// Get resolves id (client, counter) to the leaf currently holding the item
// that owns it. The second return value is false if no entry covers id.
func (m *Map[T]) Get(client uint64, counter uint32) (*rle.Leaf[T], bool) {
	if e, ok := m.cache.Get(cacheKey(client, counter)); ok {
		if e.client == client && e.counterFrom <= counter && counter < e.counterTo {
			return e.leaf, true
		}
	}
	rit := m.tree.Root().ReverseIterator()
	rit.SeekReverseLowerBound(encodeKey(client, counter))
	key, e, ok := rit.Previous()
	if !ok {
		return nil, false
	}
	gotClient, _ := decodeKey(key)
	if gotClient != client || counter < e.counterFrom || counter >= e.counterTo {
		return nil, false
	}
	m.cache.Add(cacheKey(client, counter), e)
	return e.leaf, true
}

// Has reports whether id is covered by some entry.
func (m *Map[T]) Has(client uint64, counter uint32) bool {
	_, ok := m.Get(client, counter)
	return ok
}

// Clear empties the map.
func (m *Map[T]) Clear() {
	m.tree = iradix.New[byte, entry[T]]()
	m.cache.Purge()
}

// cacheKey folds (client, counter) into a single uint64 for the LRU's key
// type. Two different clients can fold to the same key; Get checks the
// cached entry's client and counter range before using it and otherwise
// falls back to the floor lookup, so a hash collision only costs a cache
// miss, never a wrong answer.
func cacheKey(client uint64, counter uint32) uint64 {
	return (client * 1099511628211) ^ uint64(counter)
}

// Notifier returns a rle.Notifier that records the item's ID range (read
// with client, from and to) as owned by the leaf it lands in. Intended to be passed
// straight to rle.New.
func Notifier[T rle.Item[T]](m *Map[T], client func(T) uint64, from func(T) uint32, to func(T) uint32) rle.Notifier[T] {
	return func(item T, leaf *rle.Leaf[T]) {
		m.Set(client(item), from(item), to(item), leaf)
	}
}
