package dagconfig

import "testing"

func TestByName(t *testing.T) {
	params, ok := ByName("mainnet")
	if !ok {
		t.Fatal("ByName: mainnet should be registered")
	}
	if params.ChainwebVersion != 1 {
		t.Errorf("ChainwebVersion: got %d, want 1", params.ChainwebVersion)
	}
	if len(params.GenesisHeaders) != 1 {
		t.Errorf("GenesisHeaders: got %d, want 1", len(params.GenesisHeaders))
	}

	if _, ok := ByName("nonexistent"); ok {
		t.Error("ByName: nonexistent should not be registered")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	err := Register(&MainnetParams)
	if err != ErrDuplicateParams {
		t.Errorf("Register: got %v, want ErrDuplicateParams", err)
	}
}
