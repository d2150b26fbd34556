package reconcile

import (
	"errors"
	"testing"
	"time"

	"github.com/daglabs/headerdb/blockheader"
	"github.com/daglabs/headerdb/storeerrors"
	"github.com/daglabs/headerdb/util/daghash"
)

// fakeChain is an in-memory hash -> header map used to exercise
// Reconcile without a real header store, mirroring how the payload lookup
// collaborator itself is meant to be faked in tests.
type fakeChain struct {
	byHash map[daghash.Hash]*blockheader.BlockHeader
}

func newFakeChain() *fakeChain {
	return &fakeChain{byHash: make(map[daghash.Hash]*blockheader.BlockHeader)}
}

func (c *fakeChain) add(header *blockheader.BlockHeader) *blockheader.BlockHeader {
	c.byHash[header.Hash()] = header
	return header
}

func (c *fakeChain) genesis(chainID uint32) *blockheader.BlockHeader {
	return c.add(&blockheader.BlockHeader{
		ChainID:   chainID,
		Height:    0,
		Timestamp: time.Unix(1000, 0),
	})
}

func (c *fakeChain) child(parent *blockheader.BlockHeader, nonce uint64) *blockheader.BlockHeader {
	return c.add(&blockheader.BlockHeader{
		ChainID:    parent.ChainID,
		Height:     parent.Height + 1,
		ParentHash: parent.Hash(),
		Timestamp:  parent.Timestamp.Add(time.Second),
		Nonce:      nonce,
	})
}

func (c *fakeChain) walk(height uint64, hash daghash.Hash) AncestorWalker {
	return &fakeWalker{chain: c, nextHash: hash, hasNext: true}
}

type fakeWalker struct {
	chain    *fakeChain
	nextHash daghash.Hash
	hasNext  bool
}

func (w *fakeWalker) Next() (*blockheader.BlockHeader, bool, error) {
	if !w.hasNext {
		return nil, false, nil
	}
	header, ok := w.chain.byHash[w.nextHash]
	if !ok {
		w.hasNext = false
		return nil, false, nil
	}
	if header.Height == 0 {
		w.hasNext = false
	} else {
		w.nextHash = header.ParentHash
	}
	return header, true, nil
}

func headOf(header *blockheader.BlockHeader) Head {
	return Head{Height: header.Height, Hash: header.Hash()}
}

func txSet(hashes ...byte) map[TxHash]struct{} {
	set := make(map[TxHash]struct{}, len(hashes))
	for _, b := range hashes {
		var h TxHash
		h[0] = b
		set[h] = struct{}{}
	}
	return set
}

// TestReconcileSimpleFork mirrors scenario S2: chain G-A-B-C, a sibling D'
// forked from B, reconciling from D' (new) to C (old) returns exactly the
// transactions unique to C's branch.
func TestReconcileSimpleFork(t *testing.T) {
	chain := newFakeChain()
	g := chain.genesis(0)
	a := chain.child(g, 1)
	b := chain.child(a, 2)
	c := chain.child(b, 3)
	d := chain.child(b, 4)

	payloads := map[daghash.Hash]map[TxHash]struct{}{
		c.Hash(): txSet(1, 2),
		d.Hash(): txSet(2, 3),
	}
	lookup := func(header *blockheader.BlockHeader) (map[TxHash]struct{}, error) {
		return payloads[header.Hash()], nil
	}

	result, err := Reconcile(chain.walk, headOf(d), headOf(c), lookup, Options{})
	if err != nil {
		t.Fatalf("Reconcile: unexpected error %v", err)
	}

	want := txSet(1)
	if len(result) != len(want) {
		t.Fatalf("Reconcile: got %v, want %v", result, want)
	}
	for tx := range want {
		if _, ok := result[tx]; !ok {
			t.Fatalf("Reconcile: missing expected tx %v in %v", tx, result)
		}
	}
}

// TestReconcileDeepFork mirrors scenario S3: a 20-block chain split at
// height 10 into branches of length 5 and 8; reconciling from the longer
// branch's tip to the shorter branch's tip returns exactly the txs unique
// to the shorter branch.
func TestReconcileDeepFork(t *testing.T) {
	chain := newFakeChain()
	tip := chain.genesis(0)
	for i := 0; i < 10; i++ {
		tip = chain.child(tip, uint64(i))
	}
	forkPoint := tip

	shortTip := forkPoint
	payloads := map[daghash.Hash]map[TxHash]struct{}{}
	for i := 0; i < 5; i++ {
		shortTip = chain.child(shortTip, uint64(100+i))
		payloads[shortTip.Hash()] = txSet(byte(i))
	}

	longTip := forkPoint
	for i := 0; i < 8; i++ {
		longTip = chain.child(longTip, uint64(200+i))
		payloads[longTip.Hash()] = txSet(byte(50 + i))
	}

	lookup := func(header *blockheader.BlockHeader) (map[TxHash]struct{}, error) {
		return payloads[header.Hash()], nil
	}

	result, err := Reconcile(chain.walk, headOf(longTip), headOf(shortTip), lookup, Options{})
	if err != nil {
		t.Fatalf("Reconcile: unexpected error %v", err)
	}
	if len(result) != 5 {
		t.Fatalf("Reconcile: got %d txs, want 5", len(result))
	}
	for i := 0; i < 5; i++ {
		var want TxHash
		want[0] = byte(i)
		if _, ok := result[want]; !ok {
			t.Fatalf("Reconcile: missing tx %d in result", i)
		}
	}
}

// TestReconcileNoOrphans checks the "no orphans" guarantee directly: every
// tx unique to the old branch is present in the result.
func TestReconcileNoOrphans(t *testing.T) {
	chain := newFakeChain()
	g := chain.genesis(0)
	a := chain.child(g, 1)
	oldTip := chain.child(a, 2)
	newTip := chain.child(a, 3)

	payloads := map[daghash.Hash]map[TxHash]struct{}{
		oldTip.Hash(): txSet(9, 10, 11),
		newTip.Hash(): txSet(),
	}
	lookup := func(header *blockheader.BlockHeader) (map[TxHash]struct{}, error) {
		return payloads[header.Hash()], nil
	}

	result, err := Reconcile(chain.walk, headOf(newTip), headOf(oldTip), lookup, Options{})
	if err != nil {
		t.Fatalf("Reconcile: unexpected error %v", err)
	}
	for _, want := range []byte{9, 10, 11} {
		var h TxHash
		h[0] = want
		if _, ok := result[h]; !ok {
			t.Fatalf("Reconcile: orphaned tx %d missing from result %v", want, result)
		}
	}
}

// TestReconcileValiditySource checks that no returned tx also appears on
// the new branch.
func TestReconcileValiditySource(t *testing.T) {
	chain := newFakeChain()
	g := chain.genesis(0)
	oldTip := chain.child(g, 1)
	newTip := chain.child(g, 2)

	payloads := map[daghash.Hash]map[TxHash]struct{}{
		oldTip.Hash(): txSet(1, 2, 3),
		newTip.Hash(): txSet(2, 3, 4),
	}
	lookup := func(header *blockheader.BlockHeader) (map[TxHash]struct{}, error) {
		return payloads[header.Hash()], nil
	}

	result, err := Reconcile(chain.walk, headOf(newTip), headOf(oldTip), lookup, Options{})
	if err != nil {
		t.Fatalf("Reconcile: unexpected error %v", err)
	}
	want := txSet(1)
	if len(result) != 1 {
		t.Fatalf("Reconcile: got %v, want %v", result, want)
	}
	for tx := range result {
		if _, inNew := payloads[newTip.Hash()][tx]; inNew {
			t.Fatalf("Reconcile: result contains tx %v also present on new branch", tx)
		}
	}
}

func TestReconcileMissingHead(t *testing.T) {
	chain := newFakeChain()
	g := chain.genesis(0)
	tip := chain.child(g, 1)

	lookup := func(header *blockheader.BlockHeader) (map[TxHash]struct{}, error) {
		return nil, nil
	}

	missingHead := Head{Height: 99, Hash: daghash.Hash{0xee}}
	_, err := Reconcile(chain.walk, headOf(tip), missingHead, lookup, Options{})
	if !errorHasKind(err, storeerrors.KindMissingHead) {
		t.Fatalf("Reconcile: got %v, want MissingHead", err)
	}

	_, err = Reconcile(chain.walk, missingHead, headOf(tip), lookup, Options{})
	if !errorHasKind(err, storeerrors.KindMissingHead) {
		t.Fatalf("Reconcile: got %v, want MissingHead", err)
	}
}

func TestReconcileForkTooDeep(t *testing.T) {
	chainA := newFakeChain()
	gA := chainA.genesis(0)
	tipA := chainA.child(gA, 1)

	chainB := newFakeChain()
	gB := chainB.genesis(1)
	tipB := chainB.child(gB, 2)

	merged := newFakeChain()
	for h, header := range chainA.byHash {
		merged.byHash[h] = header
	}
	for h, header := range chainB.byHash {
		merged.byHash[h] = header
	}

	lookup := func(header *blockheader.BlockHeader) (map[TxHash]struct{}, error) {
		return nil, nil
	}

	_, err := Reconcile(merged.walk, headOf(tipA), headOf(tipB), lookup, Options{ForkDepthLimit: 5})
	if !errorHasKind(err, storeerrors.KindForkTooDeep) {
		t.Fatalf("Reconcile: got %v, want ForkTooDeep", err)
	}
}

func errorHasKind(err error, kind storeerrors.Kind) bool {
	var se *storeerrors.StoreError
	return errors.As(err, &se) && se.Kind() == kind
}
