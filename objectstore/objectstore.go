// Package objectstore implements the content-addressed object store (CAOS):
// immutable blobs and tree objects addressed by the hash of their contents,
// backed by a tuned leveldb.DB.
package objectstore

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/daglabs/headerdb/infrastructure/db/database/ldb"
	"github.com/daglabs/headerdb/infrastructure/logger"
	"github.com/daglabs/headerdb/storeerrors"
	"github.com/daglabs/headerdb/util/daghash"
)

var log *logger.Logger

// SetLogger installs the subsystem logger used by this package. Called once
// from the top-level store at open time.
func SetLogger(l *logger.Logger) { log = l }

// Kind distinguishes the two object types this store holds.
type Kind byte

// The two object kinds CAOS stores.
const (
	KindBlob Kind = iota
	KindTree
)

// EntryMode tags what a TreeEntry points at.
type EntryMode byte

// The two entry modes a tree object's entries carry.
const (
	ModeBlob EntryMode = iota
	ModeTree
)

// TreeEntry is a single named pointer inside a tree object.
type TreeEntry struct {
	Name     []byte
	ObjectID daghash.Hash
	Mode     EntryMode
}

// Store is the content-addressed object store. All operations are safe for
// concurrent use; the header store layered on top additionally serializes
// callers through its own exclusive lock (§5), so this package itself does
// no locking beyond what goleveldb already provides.
type Store struct {
	db *leveldb.DB
}

// Open opens (creating if absent) a CAOS backed by a leveldb database at
// path, using tuned options suited to a large append-mostly block store.
// cacheMB and writeBufMB size the block cache and write buffer, in
// megabytes; a non-positive value for either selects ldb's defaults.
func Open(path string, cacheMB, writeBufMB int) (*Store, error) {
	db, err := leveldb.OpenFile(path, ldb.Options(cacheMB, writeBufMB))
	if err != nil {
		return nil, storeerrors.Wrap(storeerrors.KindBackendFailure, "objectstore.Open", path, err)
	}
	return &Store{db: db}, nil
}

// Close flushes and releases the underlying database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return storeerrors.Wrap(storeerrors.KindBackendFailure, "objectstore.Close", "", err)
	}
	return nil
}

// WriteBlob stores data as a blob object and returns its content hash.
// Writing the same bytes twice is idempotent: both calls return the same
// hash, and the second is a no-op write of an already-present key.
func (s *Store) WriteBlob(data []byte) (daghash.Hash, error) {
	id := contentHash(KindBlob, data)
	if err := s.put(id, KindBlob, data); err != nil {
		return daghash.Hash{}, err
	}
	if log != nil {
		log.Tracef("wrote blob %s (%d bytes)", id, len(data))
	}
	return id, nil
}

// BuildTree stores a tree object whose entries must already be sorted by
// Name, and returns its content hash.
func (s *Store) BuildTree(entries []TreeEntry) (daghash.Hash, error) {
	if len(entries) == 0 {
		return daghash.Hash{}, storeerrors.New(storeerrors.KindCorruption, "objectstore.BuildTree", "tree with zero entries")
	}
	payload := encodeTree(entries)
	id := contentHash(KindTree, payload)
	if err := s.put(id, KindTree, payload); err != nil {
		return daghash.Hash{}, err
	}
	if log != nil {
		log.Tracef("wrote tree %s (%d entries)", id, len(entries))
	}
	return id, nil
}

// ReadBlob returns the bytes of the blob stored under id.
func (s *Store) ReadBlob(id daghash.Hash) ([]byte, error) {
	kind, payload, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if kind != KindBlob {
		return nil, storeerrors.New(storeerrors.KindCorruption, "objectstore.ReadBlob", id.String())
	}
	return payload, nil
}

// ReadTree returns the entries of the tree object stored under id, in their
// on-disk (sorted) order.
func (s *Store) ReadTree(id daghash.Hash) ([]TreeEntry, error) {
	kind, payload, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if kind != KindTree {
		return nil, storeerrors.New(storeerrors.KindCorruption, "objectstore.ReadTree", id.String())
	}
	entries, err := decodeTree(payload)
	if err != nil {
		return nil, storeerrors.Wrap(storeerrors.KindCorruption, "objectstore.ReadTree", id.String(), err)
	}
	return entries, nil
}

// ReadTreeEntryByIndex reads a single entry of the tree object at id without
// materializing the full entry slice. index 0 is the first (smallest name)
// entry; if fromEnd is true, index 0 refers to the last entry instead.
func (s *Store) ReadTreeEntryByIndex(id daghash.Hash, index int, fromEnd bool) (TreeEntry, error) {
	kind, payload, err := s.get(id)
	if err != nil {
		return TreeEntry{}, err
	}
	if kind != KindTree {
		return TreeEntry{}, storeerrors.New(storeerrors.KindCorruption, "objectstore.ReadTreeEntryByIndex", id.String())
	}
	entry, ok := decodeTreeEntryAt(payload, index, fromEnd)
	if !ok {
		return TreeEntry{}, storeerrors.New(storeerrors.KindNotFound, "objectstore.ReadTreeEntryByIndex", id.String())
	}
	return entry, nil
}

func (s *Store) put(id daghash.Hash, kind Kind, payload []byte) error {
	value := make([]byte, 1+len(payload))
	value[0] = byte(kind)
	copy(value[1:], payload)
	if err := s.db.Put(id[:], value, nil); err != nil {
		return storeerrors.Wrap(storeerrors.KindBackendFailure, "objectstore.put", id.String(), err)
	}
	return nil
}

func (s *Store) get(id daghash.Hash) (Kind, []byte, error) {
	value, err := s.db.Get(id[:], nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return 0, nil, storeerrors.New(storeerrors.KindNotFound, "objectstore.get", id.String())
		}
		return 0, nil, storeerrors.Wrap(storeerrors.KindBackendFailure, "objectstore.get", id.String(), err)
	}
	if len(value) == 0 {
		return 0, nil, storeerrors.New(storeerrors.KindCorruption, "objectstore.get", id.String())
	}
	return Kind(value[0]), value[1:], nil
}

// contentHash computes the object's content hash, prefixing the kind byte
// so a blob and a tree can never collide by sharing the same payload bytes.
func contentHash(kind Kind, payload []byte) daghash.Hash {
	w := daghash.NewDoubleHashWriter()
	_, _ = w.Write([]byte{byte(kind)})
	_, _ = w.Write(payload)
	return w.Finalize()
}

// encodeTree serializes entries as a sequence of length-prefixed records:
// [count varint][per entry: nameLen varint, name, objectId (32 bytes), mode byte].
func encodeTree(entries []TreeEntry) []byte {
	buf := make([]byte, 0, 64*len(entries))
	var scratch [binary.MaxVarintLen64]byte

	n := binary.PutUvarint(scratch[:], uint64(len(entries)))
	buf = append(buf, scratch[:n]...)

	for _, e := range entries {
		n := binary.PutUvarint(scratch[:], uint64(len(e.Name)))
		buf = append(buf, scratch[:n]...)
		buf = append(buf, e.Name...)
		buf = append(buf, e.ObjectID[:]...)
		buf = append(buf, byte(e.Mode))
	}
	return buf
}

// decodeTree parses the full entry list out of an encoded tree payload.
func decodeTree(payload []byte) ([]TreeEntry, error) {
	count, offset, err := readUvarint(payload, 0)
	if err != nil {
		return nil, err
	}
	entries := make([]TreeEntry, 0, count)
	for i := uint64(0); i < count; i++ {
		entry, next, err := readTreeEntry(payload, offset)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
		offset = next
	}
	return entries, nil
}

// decodeTreeEntryAt scans the encoded payload for the entry at index,
// stopping as soon as it is found rather than decoding every entry into a
// slice.
func decodeTreeEntryAt(payload []byte, index int, fromEnd bool) (TreeEntry, bool) {
	count, offset, err := readUvarint(payload, 0)
	if err != nil {
		return TreeEntry{}, false
	}
	target := index
	if fromEnd {
		target = int(count) - 1 - index
	}
	if target < 0 || uint64(target) >= count {
		return TreeEntry{}, false
	}

	for i := uint64(0); i < count; i++ {
		entry, next, err := readTreeEntry(payload, offset)
		if err != nil {
			return TreeEntry{}, false
		}
		if i == uint64(target) {
			return entry, true
		}
		offset = next
	}
	return TreeEntry{}, false
}

func readTreeEntry(payload []byte, offset int) (TreeEntry, int, error) {
	nameLen, offset, err := readUvarint(payload, offset)
	if err != nil {
		return TreeEntry{}, 0, err
	}
	if offset+int(nameLen)+daghash.HashSize+1 > len(payload) {
		return TreeEntry{}, 0, errors.New("truncated tree entry")
	}
	name := make([]byte, nameLen)
	copy(name, payload[offset:offset+int(nameLen)])
	offset += int(nameLen)

	var id daghash.Hash
	copy(id[:], payload[offset:offset+daghash.HashSize])
	offset += daghash.HashSize

	mode := EntryMode(payload[offset])
	offset++

	return TreeEntry{Name: name, ObjectID: id, Mode: mode}, offset, nil
}

func readUvarint(payload []byte, offset int) (uint64, int, error) {
	v, n := binary.Uvarint(payload[offset:])
	if n <= 0 {
		return 0, 0, errors.New("malformed varint in tree payload")
	}
	return v, offset + n, nil
}

