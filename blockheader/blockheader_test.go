package blockheader

import (
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/daglabs/headerdb/util/daghash"
)

func sampleHeader() *BlockHeader {
	parent, _ := daghash.NewHashFromStr("aabbcc")
	payload, _ := daghash.NewHashFromStr("112233")
	return &BlockHeader{
		ChainwebVersion: 1,
		ChainID:         3,
		Height:          42,
		ParentHash:      *parent,
		PayloadHash:     *payload,
		Target:          0x1d00ffff,
		Weight:          1000,
		Timestamp:       time.Unix(1700000000, 0),
		Nonce:           123456789,
	}
}

// P1: decode(encode(h)) == h.
func TestRoundTrip(t *testing.T) {
	h := sampleHeader()
	data := Encode(h)
	if len(data) != SerializeSize {
		t.Fatalf("Encode: wrong length - got %d, want %d", len(data), SerializeSize)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: unexpected error %v", err)
	}

	if *got != *h {
		t.Errorf("round trip mismatch:\ngot:  %s\nwant: %s", spew.Sdump(got), spew.Sdump(h))
	}
}

func TestHashDeterministic(t *testing.T) {
	h := sampleHeader()
	hash1 := h.Hash()
	hash2 := h.Hash()
	if !hash1.IsEqual(&hash2) {
		t.Errorf("Hash: not deterministic - got %s, then %s", hash1, hash2)
	}

	other := sampleHeader()
	other.Nonce++
	otherHash := other.Hash()
	if hash1.IsEqual(&otherHash) {
		t.Errorf("Hash: distinct headers produced the same hash")
	}
}
