// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockheader

import (
	"bytes"
	"io"
	"time"

	"github.com/daglabs/headerdb/util/binaryserializer"
	"github.com/daglabs/headerdb/util/daghash"
)

// SerializeSize is the number of bytes it takes to serialize a BlockHeader.
// ChainwebVersion 2 + ChainID 4 + Height 8 + ParentHash 32 + PayloadHash 32 +
// Target 4 + Weight 8 + Timestamp 8 + Nonce 8.
const SerializeSize = 2 + 4 + 8 + daghash.HashSize + daghash.HashSize + 4 + 8 + 8 + 8

// BlockHeader is the header of a mined block on one chain of a multi-chain
// PoW DAG. It carries just enough to identify the block, link it to its
// parent, and let the store and the consensus collaborator do their work;
// everything below is opaque payload referenced by PayloadHash.
type BlockHeader struct {
	// ChainwebVersion identifies the genesis/parameter set this header
	// belongs to. See the dagconfig package.
	ChainwebVersion uint16

	// ChainID identifies which chain of the multi-chain DAG this header
	// extends.
	ChainID uint32

	// Height is the header's distance from genesis on its chain.
	Height uint64

	// ParentHash is the hash of the header this one extends. Zero for
	// genesis headers.
	ParentHash daghash.Hash

	// PayloadHash is an opaque pointer to the block's payload (the
	// transaction set); the store never dereferences it.
	PayloadHash daghash.Hash

	// Target is the compact difficulty target this header's proof of
	// work had to satisfy.
	Target uint32

	// Weight is the header's contribution to chain weight, used by the
	// consensus collaborator for fork-choice scoring; the store treats
	// it as opaque data.
	Weight uint64

	// Timestamp is the time the block was mined, encoded on the wire as
	// unix seconds.
	Timestamp time.Time

	// Nonce is the value the miner varied to satisfy Target.
	Nonce uint64
}

// Hash computes the content hash identifying this header: the double SHA-256
// of its canonical encoding.
func (h *BlockHeader) Hash() daghash.Hash {
	buf := bytes.NewBuffer(make([]byte, 0, SerializeSize))
	// Serialize cannot fail writing into a bytes.Buffer.
	_ = h.Serialize(buf)

	w := daghash.NewDoubleHashWriter()
	_, _ = w.Write(buf.Bytes())
	return w.Finalize()
}

// Serialize encodes the header into w using the canonical on-disk format.
// decode(encode(h)) == h for every header produced by this package.
func (h *BlockHeader) Serialize(w io.Writer) error {
	if err := binaryserializer.PutUint16(w, h.ChainwebVersion); err != nil {
		return err
	}
	if err := binaryserializer.PutUint32(w, h.ChainID); err != nil {
		return err
	}
	if err := binaryserializer.PutUint64(w, h.Height); err != nil {
		return err
	}
	if _, err := w.Write(h.ParentHash[:]); err != nil {
		return err
	}
	if _, err := w.Write(h.PayloadHash[:]); err != nil {
		return err
	}
	if err := binaryserializer.PutUint32(w, h.Target); err != nil {
		return err
	}
	if err := binaryserializer.PutUint64(w, h.Weight); err != nil {
		return err
	}
	if err := binaryserializer.PutUint64(w, uint64(h.Timestamp.Unix())); err != nil {
		return err
	}
	return binaryserializer.PutUint64(w, h.Nonce)
}

// Deserialize decodes a header from r into the receiver. It is the inverse
// of Serialize.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	var err error
	if h.ChainwebVersion, err = binaryserializer.Uint16(r); err != nil {
		return err
	}
	if h.ChainID, err = binaryserializer.Uint32(r); err != nil {
		return err
	}
	if h.Height, err = binaryserializer.Uint64(r); err != nil {
		return err
	}
	if _, err = io.ReadFull(r, h.ParentHash[:]); err != nil {
		return err
	}
	if _, err = io.ReadFull(r, h.PayloadHash[:]); err != nil {
		return err
	}
	if h.Target, err = binaryserializer.Uint32(r); err != nil {
		return err
	}
	if h.Weight, err = binaryserializer.Uint64(r); err != nil {
		return err
	}
	var sec uint64
	if sec, err = binaryserializer.Uint64(r); err != nil {
		return err
	}
	h.Timestamp = time.Unix(int64(sec), 0)
	if h.Nonce, err = binaryserializer.Uint64(r); err != nil {
		return err
	}
	return nil
}

// Encode returns the canonical byte encoding of the header.
func Encode(h *BlockHeader) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, SerializeSize))
	_ = h.Serialize(buf)
	return buf.Bytes()
}

// Decode decodes a header from its canonical byte encoding, as produced by
// Encode.
func Decode(data []byte) (*BlockHeader, error) {
	h := new(BlockHeader)
	if err := h.Deserialize(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return h, nil
}
