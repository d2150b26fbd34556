// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dagconfig

import (
	"github.com/pkg/errors"

	"github.com/daglabs/headerdb/blockheader"
	"github.com/daglabs/headerdb/spectrum"
)

// Params defines one named parameter set a header store can be opened
// against: which genesis header(s) seed the DAG, and the spectrum tuning
// used for every header stored under it.
type Params struct {
	// Name is a human-readable identifier for this parameter set.
	Name string

	// ChainwebVersion is the numeric identifier stamped into every
	// header's ChainwebVersion field for this parameter set.
	ChainwebVersion uint16

	// GenesisHeaders are the height-0 headers injected at store open,
	// one per chain. They are never passed through the normal insert
	// path (I5).
	GenesisHeaders []*blockheader.BlockHeader

	// Spectrum is the tuning used when computing ancestor pointers for
	// headers stored under this parameter set.
	Spectrum spectrum.Params
}

// MainnetParams defines the default single-chain parameter set. Its one
// genesis header is otherwise zero-valued aside from the fields that must
// be stable identifiers (ChainwebVersion, ChainID).
var MainnetParams = Params{
	Name:            "mainnet",
	ChainwebVersion: 1,
	GenesisHeaders: []*blockheader.BlockHeader{
		mustGenesis(1, 0),
	},
	Spectrum: spectrum.DefaultParams,
}

// DevnetParams defines a parameter set intended for local development and
// integration tests: same spectrum tuning, a distinct ChainwebVersion so
// devnet headers can never collide with mainnet ones once hashed, and a
// four-chain genesis set to exercise the multi-chain case.
var DevnetParams = Params{
	Name:            "devnet",
	ChainwebVersion: 2,
	GenesisHeaders: []*blockheader.BlockHeader{
		mustGenesis(2, 0),
		mustGenesis(2, 1),
		mustGenesis(2, 2),
		mustGenesis(2, 3),
	},
	Spectrum: spectrum.DefaultParams,
}

func mustGenesis(chainwebVersion uint16, chainID uint32) *blockheader.BlockHeader {
	return &blockheader.BlockHeader{
		ChainwebVersion: chainwebVersion,
		ChainID:         chainID,
		Height:          0,
	}
}

var (
	// ErrDuplicateParams describes an error where a named parameter set
	// was already registered.
	ErrDuplicateParams = errors.New("duplicate dagconfig parameter set")

	registeredParams = make(map[string]*Params)
)

// Register adds a named parameter set to the registry so it can later be
// looked up by name (for example, from a config flag). Returns
// ErrDuplicateParams if the name is already registered.
func Register(params *Params) error {
	if _, ok := registeredParams[params.Name]; ok {
		return ErrDuplicateParams
	}
	registeredParams[params.Name] = params
	return nil
}

// ByName looks up a previously registered parameter set by name.
func ByName(name string) (*Params, bool) {
	params, ok := registeredParams[name]
	return params, ok
}

func mustRegister(params *Params) {
	if err := Register(params); err != nil {
		panic("failed to register dagconfig params: " + err.Error())
	}
}

func init() {
	mustRegister(&MainnetParams)
	mustRegister(&DevnetParams)
}
