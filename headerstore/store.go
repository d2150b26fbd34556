// Package headerstore implements the header store API (component D): the
// insert/lookup/enumeration surface layered over the content-addressed
// object store and the named-reference index, enforcing invariants I1-I5.
package headerstore

import (
	"sort"
	"sync"

	"github.com/daglabs/headerdb/blockheader"
	"github.com/daglabs/headerdb/dagconfig"
	"github.com/daglabs/headerdb/infrastructure/logger"
	"github.com/daglabs/headerdb/objectstore"
	"github.com/daglabs/headerdb/refindex"
	"github.com/daglabs/headerdb/spectrum"
	"github.com/daglabs/headerdb/storeerrors"
	"github.com/daglabs/headerdb/util/daghash"
)

var log *logger.Logger

// SetLogger installs the subsystem logger used by this package. Called once
// from the top-level store at open time.
func SetLogger(l *logger.Logger) { log = l }

// defaultCacheSize bounds the in-memory header and tree-entry caches when a
// caller does not override it via Options.
const defaultCacheSize = 4096

// InsertResult distinguishes a successful insert from a duplicate one; per
// §7, AlreadyExists is a result value, not an error.
type InsertResult int

// The two outcomes Insert can report.
const (
	Inserted InsertResult = iota
	AlreadyExists
)

func (r InsertResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case AlreadyExists:
		return "already-exists"
	default:
		return "unknown"
	}
}

// Options configures a Store beyond its backing object store, ref index,
// and parameter set.
type Options struct {
	// HeaderCacheSize bounds the read cache of decoded headers. Zero
	// selects defaultCacheSize.
	HeaderCacheSize int

	// TreeEntryCacheSize bounds the smaller companion cache of tree
	// entry lists used during ancestor descent. Zero selects
	// defaultCacheSize / 4.
	TreeEntryCacheSize int
}

// Store is the header store: CAOS + ref index + spectrum tuning, with a
// randomly-evicting read cache in front of both.
type Store struct {
	objects  *objectstore.Store
	refs     *refindex.Index
	spectrum spectrum.Params

	mu         sync.Mutex
	headers    *headerLRUCache
	treeCache  *treeEntryCache
	count      uint64
}

// Open wires a Store over an already-open object store and ref index, using
// params' spectrum tuning. It does not inject genesis headers; callers do
// that once via InsertGenesis at first startup.
func Open(objects *objectstore.Store, refs *refindex.Index, params *dagconfig.Params, opts Options) *Store {
	headerCacheSize := opts.HeaderCacheSize
	if headerCacheSize <= 0 {
		headerCacheSize = defaultCacheSize
	}
	treeCacheSize := opts.TreeEntryCacheSize
	if treeCacheSize <= 0 {
		treeCacheSize = defaultCacheSize / 4
	}

	return &Store{
		objects:   objects,
		refs:      refs,
		spectrum:  params.Spectrum,
		headers:   newHeaderLRUCache(headerCacheSize),
		treeCache: newTreeEntryCache(treeCacheSize),
	}
}

// Count returns the number of headers, genesis headers included, inserted
// through this Store since Open. The count is held in memory only: headers
// already on disk when the Store was opened are not counted.
func (s *Store) Count() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// InsertGenesis injects a height-0 header directly, bypassing the normal
// insert path's InvalidGenesis check (I5). It is meant to be called once
// per configured genesis header, at store open.
func (s *Store) InsertGenesis(header *blockheader.BlockHeader) error {
	if header.Height != 0 {
		return storeerrors.New(storeerrors.KindInvalidGenesis, "headerstore.InsertGenesis", "height != 0")
	}
	hash := header.Hash()

	s.mu.Lock()
	defer s.mu.Unlock()

	refName := refindex.FormatRefName(refindex.HeaderNamespace, 0, hash)
	if _, err := s.refs.LookupRef(refName); err == nil {
		return nil // already injected; tolerate repeated calls at startup
	}

	blobID, err := s.objects.WriteBlob(blockheader.Encode(header))
	if err != nil {
		return err
	}

	entry := objectstore.TreeEntry{
		Name:     []byte(formatEntryName(0, hash)),
		ObjectID: blobID,
		Mode:     objectstore.ModeBlob,
	}
	treeID, err := s.objects.BuildTree([]objectstore.TreeEntry{entry})
	if err != nil {
		return err
	}

	if err := s.refs.SetRef(refName, treeID, true); err != nil {
		return err
	}
	leafName := refindex.FormatRefName(refindex.LeafNamespace, 0, hash)
	if err := s.refs.SetRef(leafName, treeID, true); err != nil {
		return err
	}
	s.count++
	if log != nil {
		log.Infof("injected genesis header %s at height 0", hash)
	}
	return nil
}

// Insert stores header, enforcing I1-I5. See §4.4 for the numbered steps
// this follows.
func (s *Store) Insert(header *blockheader.BlockHeader) (InsertResult, error) {
	hash := header.Hash()
	height := header.Height

	s.mu.Lock()
	defer s.mu.Unlock()

	bhRefName := refindex.FormatRefName(refindex.HeaderNamespace, height, hash)
	if _, err := s.refs.LookupRef(bhRefName); err == nil {
		return AlreadyExists, nil
	} else if !storeerrors.IsNotFound(err) {
		return 0, err
	}

	if height == 0 {
		return 0, storeerrors.New(storeerrors.KindInvalidGenesis, "headerstore.Insert", "height == 0")
	}

	parentRefName := refindex.FormatRefName(refindex.HeaderNamespace, height-1, header.ParentHash)
	parentTreeID, err := s.refs.LookupRef(parentRefName)
	if err != nil {
		if storeerrors.IsNotFound(err) {
			return 0, storeerrors.New(storeerrors.KindMissingParent, "headerstore.Insert", header.ParentHash.String())
		}
		return 0, err
	}

	spectrumHeights := spectrum.Compute(height, s.spectrum)
	entries := make([]objectstore.TreeEntry, 0, len(spectrumHeights)+2)
	for _, h := range spectrumHeights {
		entry, err := s.lookupAtHeightLocked(parentTreeID, h)
		if err != nil {
			return 0, err
		}
		entries = append(entries, entry)
	}
	entries = append(entries, objectstore.TreeEntry{
		Name:     []byte(formatEntryName(height-1, header.ParentHash)),
		ObjectID: parentTreeID,
		Mode:     objectstore.ModeTree,
	})

	blobID, err := s.objects.WriteBlob(blockheader.Encode(header))
	if err != nil {
		return 0, err
	}
	entries = append(entries, objectstore.TreeEntry{
		Name:     []byte(formatEntryName(height, hash)),
		ObjectID: blobID,
		Mode:     objectstore.ModeBlob,
	})
	sort.Slice(entries, func(i, j int) bool { return string(entries[i].Name) < string(entries[j].Name) })

	treeID, err := s.objects.BuildTree(entries)
	if err != nil {
		return 0, err
	}

	if err := s.refs.SetRef(bhRefName, treeID, true); err != nil {
		return 0, err
	}
	leafName := refindex.FormatRefName(refindex.LeafNamespace, height, hash)
	if err := s.refs.SetRef(leafName, treeID, true); err != nil {
		return 0, err
	}
	parentLeafName := refindex.FormatRefName(refindex.LeafNamespace, height-1, header.ParentHash)
	if err := s.refs.DeleteRef(parentLeafName); err != nil && !storeerrors.IsNotFound(err) {
		return 0, err
	}

	s.count++
	s.headers.Add(key{height: height, hash: hash}, header)
	if log != nil {
		log.Debugf("inserted header %s at height %d", hash, height)
	}
	return Inserted, nil
}

// LookupByKey returns the decoded header for (height, hash), or found=false
// if no such header is stored.
func (s *Store) LookupByKey(height uint64, hash daghash.Hash) (header *blockheader.BlockHeader, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookupByKeyLocked(height, hash)
}

func (s *Store) lookupByKeyLocked(height uint64, hash daghash.Hash) (*blockheader.BlockHeader, bool, error) {
	k := key{height: height, hash: hash}
	if header, ok := s.headers.Get(k); ok {
		return header, true, nil
	}

	refName := refindex.FormatRefName(refindex.HeaderNamespace, height, hash)
	treeID, err := s.refs.LookupRef(refName)
	if err != nil {
		if storeerrors.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	header, err := s.decodeHeaderFromTree(treeID)
	if err != nil {
		return nil, false, err
	}
	s.headers.Add(k, header)
	return header, true, nil
}

// TreeIDForKey returns the content hash of the tree object stored for
// (height, hash). Used by AncestorWalker.Next to step from a key to its tree
// object.
func (s *Store) TreeIDForKey(height uint64, hash daghash.Hash) (daghash.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs.LookupRef(refindex.FormatRefName(refindex.HeaderNamespace, height, hash))
}

// Leaves enumerates every stored header with no stored child. Malformed ref
// names are skipped (tolerant, per §4.4).
func (s *Store) Leaves() ([]*blockheader.BlockHeader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.refs.ListRefs(refindex.LeafNamespace + "/*")
	if err != nil {
		return nil, err
	}

	headers := make([]*blockheader.BlockHeader, 0, len(names))
	for _, name := range names {
		_, height, hash, err := refindex.ParseRefName(name)
		if err != nil {
			if log != nil {
				log.Warnf("skipping malformed leaf ref %q: %s", name, err)
			}
			continue
		}
		header, found, err := s.lookupByKeyLocked(height, hash)
		if err != nil {
			return nil, err
		}
		if !found {
			if log != nil {
				log.Warnf("leaf ref %q points to a header that is no longer stored", name)
			}
			continue
		}
		headers = append(headers, header)
	}
	return headers, nil
}

// EntriesByRank streams headers in ascending height, from minHeight to
// maxHeight inclusive, stopping early once limit headers have been
// collected or a height yields no stored headers. endFlag is true when the
// scan was not cut short by limit.
func (s *Store) EntriesByRank(minHeight, maxHeight uint64, limit int) (headers []*blockheader.BlockHeader, endFlag bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for h := minHeight; h <= maxHeight; h++ {
		glob := refindex.FormatHeightPrefixGlob(refindex.HeaderNamespace, h)
		names, err := s.refs.ListRefs(glob)
		if err != nil {
			return nil, false, err
		}
		if len(names) == 0 {
			return headers, true, nil
		}
		sort.Strings(names)
		for _, name := range names {
			if len(headers) >= limit {
				return headers, false, nil
			}
			_, height, hash, err := refindex.ParseRefName(name)
			if err != nil {
				if log != nil {
					log.Warnf("skipping malformed header ref %q: %s", name, err)
				}
				continue
			}
			header, found, err := s.lookupByKeyLocked(height, hash)
			if err != nil {
				return nil, false, err
			}
			if !found {
				continue
			}
			headers = append(headers, header)
		}
	}
	return headers, true, nil
}

// LookupAtHeight implements the ancestor walk of §4.5, starting from the
// tree object identified by startTreeID.
func (s *Store) LookupAtHeight(startTreeID daghash.Hash, target uint64) (objectstore.TreeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookupAtHeightLocked(startTreeID, target)
}

func (s *Store) lookupAtHeightLocked(startTreeID daghash.Hash, target uint64) (objectstore.TreeEntry, error) {
	entries, err := s.readTreeCached(startTreeID)
	if err != nil {
		return objectstore.TreeEntry{}, err
	}
	if len(entries) == 0 {
		return objectstore.TreeEntry{}, storeerrors.New(storeerrors.KindCorruption, "headerstore.lookupAtHeight", startTreeID.String())
	}

	self := entries[len(entries)-1]
	selfHeight, _, err := parseEntryName(string(self.Name))
	if err != nil {
		return objectstore.TreeEntry{}, err
	}
	if selfHeight == target {
		return self, nil
	}

	var best *objectstore.TreeEntry
	var bestHeight uint64
	for i := range entries[:len(entries)-1] {
		h, _, err := parseEntryName(string(entries[i].Name))
		if err != nil {
			return objectstore.TreeEntry{}, err
		}
		if h >= target && (best == nil || h < bestHeight) {
			e := entries[i]
			best = &e
			bestHeight = h
		}
	}
	if best == nil {
		return objectstore.TreeEntry{}, storeerrors.New(storeerrors.KindNotFound, "headerstore.lookupAtHeight", startTreeID.String())
	}
	if bestHeight == target {
		return *best, nil
	}
	return s.lookupAtHeightLocked(best.ObjectID, target)
}

// Parent returns the parent pointer of the tree object identified by
// treeID: its second-to-last entry. Returns NotFound for a genesis header's
// tree, which has no parent entry.
func (s *Store) Parent(treeID daghash.Hash) (objectstore.TreeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.readTreeCached(treeID)
	if err != nil {
		return objectstore.TreeEntry{}, err
	}
	if len(entries) < 2 {
		return objectstore.TreeEntry{}, storeerrors.New(storeerrors.KindNotFound, "headerstore.Parent", treeID.String())
	}
	return entries[len(entries)-2], nil
}

func (s *Store) readTreeCached(treeID daghash.Hash) ([]objectstore.TreeEntry, error) {
	if entries, ok := s.treeCache.Get(treeID); ok {
		return entries, nil
	}
	entries, err := s.objects.ReadTree(treeID)
	if err != nil {
		return nil, err
	}
	s.treeCache.Add(treeID, entries)
	return entries, nil
}

// AncestorWalker walks a chain from a given (height, hash) key back toward
// genesis, one header per Next call, using Parent to step between tree
// objects without ever materializing the whole chain at once.
type AncestorWalker struct {
	store      *Store
	nextHeight uint64
	nextHash   daghash.Hash
	done       bool
}

// WalkAncestors returns a walker starting at (height, hash) inclusive.
func (s *Store) WalkAncestors(height uint64, hash daghash.Hash) *AncestorWalker {
	return &AncestorWalker{store: s, nextHeight: height, nextHash: hash}
}

// Next returns the next header in the walk, starting with the header at the
// walker's starting key and then its ancestors in descending height order.
// ok is false once the walk has yielded the genesis header.
func (w *AncestorWalker) Next() (header *blockheader.BlockHeader, ok bool, err error) {
	if w.done {
		return nil, false, nil
	}

	header, found, err := w.store.LookupByKey(w.nextHeight, w.nextHash)
	if err != nil {
		return nil, false, err
	}
	if !found {
		w.done = true
		return nil, false, nil
	}

	treeID, err := w.store.TreeIDForKey(w.nextHeight, w.nextHash)
	if err != nil {
		return nil, false, err
	}
	parentEntry, err := w.store.Parent(treeID)
	if err != nil {
		if !storeerrors.IsNotFound(err) {
			return nil, false, err
		}
		w.done = true
		return header, true, nil
	}

	parentHeight, parentHash, err := parseEntryName(string(parentEntry.Name))
	if err != nil {
		return nil, false, err
	}
	w.nextHeight, w.nextHash = parentHeight, parentHash
	return header, true, nil
}

func (s *Store) decodeHeaderFromTree(treeID daghash.Hash) (*blockheader.BlockHeader, error) {
	entry, err := s.objects.ReadTreeEntryByIndex(treeID, 0, true)
	if err != nil {
		return nil, err
	}
	if entry.Mode != objectstore.ModeBlob {
		return nil, storeerrors.New(storeerrors.KindCorruption, "headerstore.decodeHeaderFromTree", treeID.String())
	}
	data, err := s.objects.ReadBlob(entry.ObjectID)
	if err != nil {
		return nil, err
	}
	header, err := blockheader.Decode(data)
	if err != nil {
		return nil, storeerrors.Wrap(storeerrors.KindCorruption, "headerstore.decodeHeaderFromTree", treeID.String(), err)
	}
	return header, nil
}
