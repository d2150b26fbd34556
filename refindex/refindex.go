// Package refindex implements the named-reference index: a mutable
// name -> content hash mapping, namespaced bh/<height>.<hash> for stored
// headers and leaf/<height>.<hash> for current tips. Backed by goleveldb,
// the same way objectstore is.
package refindex

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/daglabs/headerdb/infrastructure/db/database/ldb"
	"github.com/daglabs/headerdb/infrastructure/logger"
	"github.com/daglabs/headerdb/storeerrors"
	"github.com/daglabs/headerdb/util/daghash"
)

var log *logger.Logger

// SetLogger installs the subsystem logger used by this package. Called once
// from the top-level store at open time.
func SetLogger(l *logger.Logger) { log = l }

// Index is the named-reference index.
type Index struct {
	db *leveldb.DB
}

// Open opens (creating if absent) a reference index backed by a leveldb
// database at path. cacheMB and writeBufMB size the block cache and write
// buffer, in megabytes; a non-positive value for either selects ldb's
// defaults.
func Open(path string, cacheMB, writeBufMB int) (*Index, error) {
	db, err := leveldb.OpenFile(path, ldb.Options(cacheMB, writeBufMB))
	if err != nil {
		return nil, storeerrors.Wrap(storeerrors.KindBackendFailure, "refindex.Open", path, err)
	}
	return &Index{db: db}, nil
}

// Close flushes and releases the underlying database handle.
func (idx *Index) Close() error {
	if err := idx.db.Close(); err != nil {
		return storeerrors.Wrap(storeerrors.KindBackendFailure, "refindex.Close", "", err)
	}
	return nil
}

// SetRef creates or, if overwrite is true, replaces the ref name -> id
// mapping. If overwrite is false and name already exists, returns
// AlreadyExists.
func (idx *Index) SetRef(name string, id daghash.Hash, overwrite bool) error {
	if !overwrite {
		exists, err := idx.has(name)
		if err != nil {
			return err
		}
		if exists {
			return storeerrors.New(storeerrors.KindAlreadyExists, "refindex.SetRef", name)
		}
	}
	if err := idx.db.Put([]byte(name), id[:], nil); err != nil {
		return storeerrors.Wrap(storeerrors.KindBackendFailure, "refindex.SetRef", name, err)
	}
	if log != nil {
		log.Tracef("set ref %s -> %s", name, id)
	}
	return nil
}

// DeleteRef removes name. Returns NotFound if it is absent.
func (idx *Index) DeleteRef(name string) error {
	exists, err := idx.has(name)
	if err != nil {
		return err
	}
	if !exists {
		return storeerrors.New(storeerrors.KindNotFound, "refindex.DeleteRef", name)
	}
	if err := idx.db.Delete([]byte(name), nil); err != nil {
		return storeerrors.Wrap(storeerrors.KindBackendFailure, "refindex.DeleteRef", name, err)
	}
	if log != nil {
		log.Tracef("deleted ref %s", name)
	}
	return nil
}

// LookupRef returns the object id name points to, or NotFound if absent.
func (idx *Index) LookupRef(name string) (daghash.Hash, error) {
	value, err := idx.db.Get([]byte(name), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return daghash.Hash{}, storeerrors.New(storeerrors.KindNotFound, "refindex.LookupRef", name)
		}
		return daghash.Hash{}, storeerrors.Wrap(storeerrors.KindBackendFailure, "refindex.LookupRef", name, err)
	}
	id, err := daghash.NewHash(value)
	if err != nil {
		return daghash.Hash{}, storeerrors.Wrap(storeerrors.KindCorruption, "refindex.LookupRef", name, err)
	}
	return *id, nil
}

// ListRefs enumerates ref names matching prefixGlob, where "*" may appear
// anywhere in the pattern. Ordering is unspecified; callers sort.
func (idx *Index) ListRefs(prefixGlob string) ([]string, error) {
	rng := util.BytesPrefix([]byte(literalPrefix(prefixGlob)))
	iter := idx.db.NewIterator(rng, nil)
	defer iter.Release()

	var names []string
	for iter.Next() {
		name := string(iter.Key())
		if matchGlob(prefixGlob, name) {
			names = append(names, name)
		}
	}
	if err := iter.Error(); err != nil {
		return nil, storeerrors.Wrap(storeerrors.KindBackendFailure, "refindex.ListRefs", prefixGlob, err)
	}
	return names, nil
}

func (idx *Index) has(name string) (bool, error) {
	exists, err := idx.db.Has([]byte(name), nil)
	if err != nil {
		return false, storeerrors.Wrap(storeerrors.KindBackendFailure, "refindex.has", name, err)
	}
	return exists, nil
}
