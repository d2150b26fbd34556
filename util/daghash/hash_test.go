package daghash

import (
	"bytes"
	"testing"
)

func TestHash(t *testing.T) {
	blockHashStr := "14a0810ac680a3eb3f82edc878cea25ec41d6b790744e5daeef"
	blockHash, err := NewHashFromStr(blockHashStr)
	if err != nil {
		t.Fatalf("NewHashFromStr: %v", err)
	}

	buf := make([]byte, HashSize)
	buf[0] = 0x79
	buf[1] = 0xa6

	hash, err := NewHash(buf)
	if err != nil {
		t.Fatalf("NewHash: unexpected error %v", err)
	}

	if len(hash) != HashSize {
		t.Errorf("NewHash: hash length mismatch - got: %v, want: %v", len(hash), HashSize)
	}

	if !bytes.Equal(hash[:], buf) {
		t.Errorf("NewHash: hash contents mismatch - got: %v, want: %v", hash[:], buf)
	}

	if hash.IsEqual(blockHash) {
		t.Errorf("IsEqual: hash contents should not match")
	}

	if !(*Hash)(nil).IsEqual(nil) {
		t.Error("IsEqual: nil hashes should match")
	}
	if hash.IsEqual(nil) {
		t.Error("IsEqual: non-nil hash matches nil hash")
	}

	if err := hash.SetBytes([]byte{0x00}); err == nil {
		t.Errorf("SetBytes: failed to receive expected err")
	}

	if _, err := NewHash(make([]byte, HashSize+1)); err == nil {
		t.Errorf("NewHash: failed to receive expected err")
	}
}

func TestHashCmpAndLess(t *testing.T) {
	hash0, _ := NewHashFromStr("00")
	hash1, _ := NewHashFromStr("11")
	hash2, _ := NewHashFromStr("22")

	if hash0.Cmp(hash0) != 0 {
		t.Error("expected equal hashes to compare to 0")
	}
	if hash0.Cmp(hash1) >= 0 {
		t.Error("expected hash0 < hash1")
	}
	if hash2.Cmp(hash1) <= 0 {
		t.Error("expected hash2 > hash1")
	}

	if !Less(hash0, hash1) {
		t.Error("expected Less(hash0, hash1)")
	}
	if Less(hash1, hash0) {
		t.Error("expected !Less(hash1, hash0)")
	}
}

func TestBase64URLRoundTrip(t *testing.T) {
	hash, _ := NewHashFromStr("3264bc2ac36a60840790ba1d475d01367e7c723da941069e9dc")
	encoded := hash.Base64URLString()
	if len(encoded) != 43 {
		t.Errorf("expected 43-character base64url encoding, got %d: %s", len(encoded), encoded)
	}

	decoded, err := NewHashFromBase64URLString(encoded)
	if err != nil {
		t.Fatalf("NewHashFromBase64URLString: %v", err)
	}
	if !hash.IsEqual(decoded) {
		t.Errorf("round trip mismatch: got %s, want %s", decoded, hash)
	}
}

func TestSort(t *testing.T) {
	hash0, _ := NewHashFromStr("00")
	hash1, _ := NewHashFromStr("11")
	hash2, _ := NewHashFromStr("22")
	hash3, _ := NewHashFromStr("33")

	hashes := []*Hash{hash3, hash1, hash0, hash2}
	Sort(hashes)

	want := []*Hash{hash0, hash1, hash2, hash3}
	equal := len(hashes) == len(want)
	for i := range hashes {
		if equal && !hashes[i].IsEqual(want[i]) {
			equal = false
		}
	}
	if !equal {
		t.Errorf("Sort: got %v, want %v", Strings(hashes), Strings(want))
	}
}
