// Package reconcile implements fork reconciliation (component E): given the
// heads of two branches of the chain, it locates their least common
// ancestor and computes the transactions that need reintroducing to a
// mempool when switching from the old branch to the new one.
package reconcile

import (
	"github.com/daglabs/headerdb/blockheader"
	"github.com/daglabs/headerdb/infrastructure/logger"
	"github.com/daglabs/headerdb/storeerrors"
	"github.com/daglabs/headerdb/util/daghash"
)

var log *logger.Logger

// SetLogger installs the subsystem logger used by this package. Called once
// from the top-level store at open time.
func SetLogger(l *logger.Logger) { log = l }

// defaultForkDepthLimit bounds how many headers either branch may be walked
// before giving up with ForkTooDeep, guarding against unbounded work when
// two heads share no ancestor reachable from the store (for example, heads
// from different genesis sets).
const defaultForkDepthLimit = 4096

// TxHash identifies a transaction. It reuses the store's content-hash type:
// from the store's point of view a transaction hash is just another opaque
// 32-byte digest.
type TxHash = daghash.Hash

// Head identifies one of the two branch tips passed to Reconcile.
type Head struct {
	Height uint64
	Hash   daghash.Hash
}

// PayloadLookup resolves a header to the set of transaction hashes it
// carries. The store never persists transaction sets itself; callers supply
// this, backed by an external payload database or, in tests, an in-memory
// map keyed by header hash.
type PayloadLookup func(header *blockheader.BlockHeader) (map[TxHash]struct{}, error)

// AncestorWalker yields successive ancestors of a starting key, starting
// with the header at that key itself. ok is false once the walk is
// exhausted (past genesis).
type AncestorWalker interface {
	Next() (header *blockheader.BlockHeader, ok bool, err error)
}

// WalkAncestorsFunc opens an AncestorWalker starting at (height, hash).
// Callers adapt their header store's WalkAncestors method to this shape;
// a plain function (rather than an interface method) sidesteps the
// covariant-return mismatch between a concrete walker type and this
// package's AncestorWalker interface.
type WalkAncestorsFunc func(height uint64, hash daghash.Hash) AncestorWalker

// Options tunes Reconcile beyond the branches and payload lookup.
type Options struct {
	// ForkDepthLimit bounds how many headers either branch walk may visit
	// before failing with ForkTooDeep. Zero selects defaultForkDepthLimit.
	ForkDepthLimit int
}

// Reconcile computes the set of transactions that must be reintroduced to a
// mempool when switching from oldHead's branch to newHead's branch: the
// transactions carried by headers unique to the old branch and absent from
// the new branch, relative to their least common ancestor. See §4.6.
func Reconcile(walk WalkAncestorsFunc, newHead, oldHead Head, payloadTxs PayloadLookup, opts Options) (map[TxHash]struct{}, error) {
	depthLimit := opts.ForkDepthLimit
	if depthLimit <= 0 {
		depthLimit = defaultForkDepthLimit
	}

	newBranch, newAncestors, err := walkBranch(walk, newHead, depthLimit, storeerrors.KindMissingHead)
	if err != nil {
		return nil, err
	}

	var lca daghash.Hash
	var oldBranch []*blockheader.BlockHeader
	oldWalker := walk(oldHead.Height, oldHead.Hash)
	foundHead := false
	foundLCA := false
	for i := 0; i < depthLimit; i++ {
		header, ok, err := oldWalker.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		foundHead = true
		hash := header.Hash()
		if _, isAncestorOfNew := newAncestors[hash]; isAncestorOfNew {
			lca = hash
			foundLCA = true
			break
		}
		oldBranch = append(oldBranch, header)
	}
	if !foundHead {
		return nil, storeerrors.New(storeerrors.KindMissingHead, "reconcile.Reconcile", oldHead.Hash.String())
	}
	if !foundLCA {
		return nil, storeerrors.New(storeerrors.KindForkTooDeep, "reconcile.Reconcile", oldHead.Hash.String())
	}

	// newBranch currently holds every ancestor of newHead down to genesis;
	// trim it to the headers strictly above the LCA.
	trimmedNewBranch := newBranch[:0:0]
	for _, header := range newBranch {
		if header.Hash() == lca {
			break
		}
		trimmedNewBranch = append(trimmedNewBranch, header)
	}

	oldTxs, err := unionPayloads(oldBranch, payloadTxs)
	if err != nil {
		return nil, err
	}
	newTxs, err := unionPayloads(trimmedNewBranch, payloadTxs)
	if err != nil {
		return nil, err
	}

	result := make(map[TxHash]struct{}, len(oldTxs))
	for tx := range oldTxs {
		if _, inNew := newTxs[tx]; !inNew {
			result[tx] = struct{}{}
		}
	}
	if log != nil {
		log.Debugf("reconciled %s -> %s at ancestor %s: %d old headers, %d new headers, %d txs to reintroduce",
			oldHead.Hash, newHead.Hash, lca, len(oldBranch), len(trimmedNewBranch), len(result))
		log.Tracef("abandoned branch hashes: %s", daghash.JoinHashesStrings(branchHashes(oldBranch), ", "))
		log.Tracef("adopted branch hashes: %v", daghash.Strings(branchHashes(trimmedNewBranch)))
	}
	return result, nil
}

// branchHashes extracts the hash of each header in order, for logging a
// branch's hash list without materializing a separate walk.
func branchHashes(headers []*blockheader.BlockHeader) []*daghash.Hash {
	hashes := make([]*daghash.Hash, len(headers))
	for i, header := range headers {
		h := header.Hash()
		hashes[i] = &h
	}
	return hashes
}

// walkBranch walks the full branch from head back to genesis (bounded by
// depthLimit), returning both the ordered header list and a set of their
// hashes for O(1) ancestor-membership checks. missingKind is returned
// (wrapped as a MissingHead-shaped error) if head itself cannot be read.
func walkBranch(walk WalkAncestorsFunc, head Head, depthLimit int, missingKind storeerrors.Kind) ([]*blockheader.BlockHeader, map[daghash.Hash]struct{}, error) {
	walker := walk(head.Height, head.Hash)
	var branch []*blockheader.BlockHeader
	hashes := make(map[daghash.Hash]struct{})

	for i := 0; i < depthLimit; i++ {
		header, ok, err := walker.Next()
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			break
		}
		branch = append(branch, header)
		hashes[header.Hash()] = struct{}{}
	}

	if len(branch) == 0 {
		return nil, nil, storeerrors.New(missingKind, "reconcile.Reconcile", head.Hash.String())
	}
	return branch, hashes, nil
}

func unionPayloads(headers []*blockheader.BlockHeader, payloadTxs PayloadLookup) (map[TxHash]struct{}, error) {
	union := make(map[TxHash]struct{})
	for _, header := range headers {
		txs, err := payloadTxs(header)
		if err != nil {
			return nil, err
		}
		for tx := range txs {
			union[tx] = struct{}{}
		}
	}
	return union, nil
}
