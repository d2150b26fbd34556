// Package store is the top-level header store handle (component F): it
// wires the object store, reference index, header store, and fork
// reconciler together behind a single exclusive lock, and is the surface
// callers outside this module should use.
package store

import (
	"context"
	"path/filepath"

	"github.com/daglabs/headerdb/blockheader"
	"github.com/daglabs/headerdb/dagconfig"
	"github.com/daglabs/headerdb/headerstore"
	"github.com/daglabs/headerdb/infrastructure/logger"
	"github.com/daglabs/headerdb/objectstore"
	"github.com/daglabs/headerdb/reconcile"
	"github.com/daglabs/headerdb/refindex"
	"github.com/daglabs/headerdb/util/daghash"
)

// Backend is the shared logging backend every subsystem package logs
// through, tagged per subsystem.
var Backend = logger.NewBackend()

var subsystemLoggers []*logger.Logger

var log = newSubsystemLogger("STOR")

func newSubsystemLogger(tag string) *logger.Logger {
	l := Backend.Logger(tag)
	subsystemLoggers = append(subsystemLoggers, l)
	return l
}

func init() {
	objectstore.SetLogger(newSubsystemLogger("OBJS"))
	refindex.SetLogger(newSubsystemLogger("REFI"))
	headerstore.SetLogger(newSubsystemLogger("HDRS"))
	reconcile.SetLogger(newSubsystemLogger("RECO"))
}

// SetLogLevel sets the logging level of every subsystem logger this package
// wired up, for callers (cmd/headerdbtool) that resolve the level from
// configuration after these packages have already registered their
// loggers.
func SetLogLevel(level logger.Level) {
	for _, l := range subsystemLoggers {
		l.SetLevel(level)
	}
}

// Options configures Open beyond the data directory and parameter set.
type Options struct {
	HeaderCacheSize    int
	TreeEntryCacheSize int
	ForkDepthLimit     int

	// LevelDBCacheMB and LevelDBWriteBufMB size the block cache and write
	// buffer of both backing leveldb databases, in megabytes. A
	// non-positive value for either selects ldb's defaults.
	LevelDBCacheMB    int
	LevelDBWriteBufMB int
}

// Store is the concurrency-gated handle callers open once per process.
type Store struct {
	lock *exclusiveLock

	objects *objectstore.Store
	refs    *refindex.Index
	headers *headerstore.Store
	opts    Options
}

// Open opens, creating if absent, a header store rooted at dataDir, using
// params to seed genesis headers and tune spectrum computation. Genesis
// headers are injected idempotently on every Open, bypassing the normal
// insert path (I5), so opening an already-initialized store is safe.
func Open(dataDir string, params *dagconfig.Params, opts Options) (*Store, error) {
	objects, err := objectstore.Open(filepath.Join(dataDir, "objects"), opts.LevelDBCacheMB, opts.LevelDBWriteBufMB)
	if err != nil {
		return nil, err
	}
	refs, err := refindex.Open(filepath.Join(dataDir, "refs"), opts.LevelDBCacheMB, opts.LevelDBWriteBufMB)
	if err != nil {
		_ = objects.Close()
		return nil, err
	}

	headers := headerstore.Open(objects, refs, params, headerstore.Options{
		HeaderCacheSize:    opts.HeaderCacheSize,
		TreeEntryCacheSize: opts.TreeEntryCacheSize,
	})

	for _, genesis := range params.GenesisHeaders {
		if err := headers.InsertGenesis(genesis); err != nil {
			_ = refs.Close()
			_ = objects.Close()
			return nil, err
		}
	}

	log.Infof("opened header store at %s (params %s, %d genesis headers)", dataDir, params.Name, len(params.GenesisHeaders))
	return &Store{
		lock:    newExclusiveLock(),
		objects: objects,
		refs:    refs,
		headers: headers,
		opts:    opts,
	}, nil
}

// Close flushes and releases both backing databases.
func (s *Store) Close(ctx context.Context) error {
	if err := s.lock.Lock(ctx); err != nil {
		return err
	}
	defer s.lock.Unlock()

	refsErr := s.refs.Close()
	objectsErr := s.objects.Close()
	if refsErr != nil {
		return refsErr
	}
	return objectsErr
}

// Insert stores header under the store's exclusive lock.
func (s *Store) Insert(ctx context.Context, header *blockheader.BlockHeader) (headerstore.InsertResult, error) {
	if err := s.lock.Lock(ctx); err != nil {
		return 0, err
	}
	defer s.lock.Unlock()
	return s.headers.Insert(header)
}

// LookupByKey returns the header stored at (height, hash), if any.
func (s *Store) LookupByKey(ctx context.Context, height uint64, hash daghash.Hash) (*blockheader.BlockHeader, bool, error) {
	if err := s.lock.Lock(ctx); err != nil {
		return nil, false, err
	}
	defer s.lock.Unlock()
	return s.headers.LookupByKey(height, hash)
}

// LookupAtHeight returns the ancestor of the tree identified by startTreeID
// at the given height, per §4.5.
func (s *Store) LookupAtHeight(ctx context.Context, startTreeID daghash.Hash, height uint64) (objectstore.TreeEntry, error) {
	if err := s.lock.Lock(ctx); err != nil {
		return objectstore.TreeEntry{}, err
	}
	defer s.lock.Unlock()
	return s.headers.LookupAtHeight(startTreeID, height)
}

// Leaves returns every currently childless stored header.
func (s *Store) Leaves(ctx context.Context) ([]*blockheader.BlockHeader, error) {
	if err := s.lock.Lock(ctx); err != nil {
		return nil, err
	}
	defer s.lock.Unlock()
	return s.headers.Leaves()
}

// EntriesByRank returns stored headers with height in [minHeight, maxHeight],
// in ascending height order, up to limit headers.
func (s *Store) EntriesByRank(ctx context.Context, minHeight, maxHeight uint64, limit int) ([]*blockheader.BlockHeader, bool, error) {
	if err := s.lock.Lock(ctx); err != nil {
		return nil, false, err
	}
	defer s.lock.Unlock()
	return s.headers.EntriesByRank(minHeight, maxHeight, limit)
}

// Parent returns the tree entry pointing at the parent of the tree object
// identified by treeID.
func (s *Store) Parent(ctx context.Context, treeID daghash.Hash) (objectstore.TreeEntry, error) {
	if err := s.lock.Lock(ctx); err != nil {
		return objectstore.TreeEntry{}, err
	}
	defer s.lock.Unlock()
	return s.headers.Parent(treeID)
}

// Reconcile computes the transactions to reintroduce to a mempool when
// switching from oldHead's branch to newHead's branch, per §4.6. Unlike the
// other operations, reconcile is not a single atomic critical section: it
// issues one lookup per header walked, so concurrent inserts may interleave
// with it. This matches the read-consistency guarantee in §5 (a lookup
// always observes a serial ordering of writes), not a snapshot isolation
// guarantee across the whole walk.
func (s *Store) Reconcile(ctx context.Context, newHead, oldHead reconcile.Head, payloadTxs reconcile.PayloadLookup) (map[reconcile.TxHash]struct{}, error) {
	walk := func(height uint64, hash daghash.Hash) reconcile.AncestorWalker {
		return &lockedAncestorWalker{ctx: ctx, store: s, inner: s.headers.WalkAncestors(height, hash)}
	}
	opts := reconcile.Options{ForkDepthLimit: s.opts.ForkDepthLimit}
	return reconcile.Reconcile(walk, newHead, oldHead, payloadTxs, opts)
}

// lockedAncestorWalker adapts headerstore.AncestorWalker to reconcile's
// AncestorWalker interface, taking the store's lock for each step so a walk
// spanning many ancestors still only ever holds the lock one header at a
// time rather than for the whole reconciliation.
type lockedAncestorWalker struct {
	ctx   context.Context
	store *Store
	inner *headerstore.AncestorWalker
}

func (w *lockedAncestorWalker) Next() (*blockheader.BlockHeader, bool, error) {
	if err := w.store.lock.Lock(w.ctx); err != nil {
		return nil, false, err
	}
	defer w.store.lock.Unlock()
	return w.inner.Next()
}
