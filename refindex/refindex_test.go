package refindex

import (
	"errors"
	"sort"
	"testing"

	"github.com/daglabs/headerdb/storeerrors"
	"github.com/daglabs/headerdb/util/daghash"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(t.TempDir(), 0, 0)
	if err != nil {
		t.Fatalf("Open: unexpected error %v", err)
	}
	t.Cleanup(func() {
		if err := idx.Close(); err != nil {
			t.Fatalf("Close: unexpected error %v", err)
		}
	})
	return idx
}

func TestRefNameRoundTrip(t *testing.T) {
	hash, _ := daghash.NewHashFromStr("aabbccdd")
	name := FormatRefName(HeaderNamespace, 42, *hash)

	ns, height, parsedHash, err := ParseRefName(name)
	if err != nil {
		t.Fatalf("ParseRefName: unexpected error %v", err)
	}
	if ns != HeaderNamespace {
		t.Errorf("namespace: got %q, want %q", ns, HeaderNamespace)
	}
	if height != 42 {
		t.Errorf("height: got %d, want 42", height)
	}
	if !parsedHash.IsEqual(hash) {
		t.Errorf("hash: got %s, want %s", parsedHash, hash)
	}
}

func TestRefNameOrderingMatchesHeightHashOrder(t *testing.T) {
	low, _ := daghash.NewHashFromStr("00")
	high, _ := daghash.NewHashFromStr("ff")

	names := []string{
		FormatRefName(HeaderNamespace, 2, *high),
		FormatRefName(HeaderNamespace, 1, *high),
		FormatRefName(HeaderNamespace, 1, *low),
	}
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	want := []string{
		FormatRefName(HeaderNamespace, 1, *low),
		FormatRefName(HeaderNamespace, 1, *high),
		FormatRefName(HeaderNamespace, 2, *high),
	}
	for i := range want {
		if sorted[i] != want[i] {
			t.Fatalf("ordering mismatch at %d: got %q, want %q", i, sorted[i], want[i])
		}
	}
}

func TestSetLookupDeleteRef(t *testing.T) {
	idx := openTestIndex(t)
	hash, _ := daghash.NewHashFromStr("112233")
	name := FormatRefName(HeaderNamespace, 5, *hash)

	if err := idx.SetRef(name, *hash, false); err != nil {
		t.Fatalf("SetRef: unexpected error %v", err)
	}

	got, err := idx.LookupRef(name)
	if err != nil {
		t.Fatalf("LookupRef: unexpected error %v", err)
	}
	if !got.IsEqual(hash) {
		t.Errorf("LookupRef: got %s, want %s", got, hash)
	}

	err = idx.SetRef(name, *hash, false)
	var se *storeerrors.StoreError
	if !errors.As(err, &se) || se.Kind() != storeerrors.KindAlreadyExists {
		t.Fatalf("SetRef overwrite=false on existing ref: got %v, want AlreadyExists", err)
	}

	if err := idx.SetRef(name, *hash, true); err != nil {
		t.Fatalf("SetRef overwrite=true: unexpected error %v", err)
	}

	if err := idx.DeleteRef(name); err != nil {
		t.Fatalf("DeleteRef: unexpected error %v", err)
	}
	if err := idx.DeleteRef(name); err == nil {
		t.Fatal("DeleteRef: expected NotFound on second delete")
	}
	if _, err := idx.LookupRef(name); err == nil {
		t.Fatal("LookupRef: expected NotFound after delete")
	}
}

func TestListRefsGlob(t *testing.T) {
	idx := openTestIndex(t)
	hash, _ := daghash.NewHashFromStr("aa")

	bhName := FormatRefName(HeaderNamespace, 1, *hash)
	leafName := FormatRefName(LeafNamespace, 1, *hash)
	if err := idx.SetRef(bhName, *hash, false); err != nil {
		t.Fatalf("SetRef: unexpected error %v", err)
	}
	if err := idx.SetRef(leafName, *hash, false); err != nil {
		t.Fatalf("SetRef: unexpected error %v", err)
	}

	bhRefs, err := idx.ListRefs(HeaderNamespace + "/*")
	if err != nil {
		t.Fatalf("ListRefs: unexpected error %v", err)
	}
	if len(bhRefs) != 1 || bhRefs[0] != bhName {
		t.Errorf("ListRefs(bh/*): got %v, want [%s]", bhRefs, bhName)
	}

	leafRefs, err := idx.ListRefs(LeafNamespace + "/*")
	if err != nil {
		t.Fatalf("ListRefs: unexpected error %v", err)
	}
	if len(leafRefs) != 1 || leafRefs[0] != leafName {
		t.Errorf("ListRefs(leaf/*): got %v, want [%s]", leafRefs, leafName)
	}
}
