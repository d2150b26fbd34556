// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package daghash

import (
	"encoding/base64"
	"encoding/hex"

	"github.com/pkg/errors"
)

// HashSize of array used to store hashes.
const HashSize = 32

// MaxHashStringSize is the maximum length of a Hash hash string.
const MaxHashStringSize = HashSize * 2

// ErrHashStrSize describes an error that indicates the caller specified a
// hash string that has too many characters.
var ErrHashStrSize = errors.Errorf("max hash string length is %d bytes", MaxHashStringSize)

// Hash is used in several of the the block headers and in transactions to
// identify content addressed to data: block headers, tree objects, and blob
// objects all share this 32-byte digest type.
type Hash [HashSize]byte

// String returns the Hash as the hexadecimal string of its bytes, in stored
// order.
func (hash Hash) String() string {
	return hex.EncodeToString(hash[:])
}

// Base64URLString returns the RFC 4648 base64url-without-padding encoding of
// the hash. This is the encoding used for the hash component of reference
// names on disk (see the refindex package).
func (hash Hash) Base64URLString() string {
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// NewHashFromBase64URLString decodes a base64url-without-padding string into
// a Hash.
func NewHashFromBase64URLString(s string) (*Hash, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return NewHash(b)
}

// CloneBytes returns a copy of the bytes which represent the hash as a byte
// slice.
func (hash *Hash) CloneBytes() []byte {
	newHash := make([]byte, HashSize)
	copy(newHash, hash[:])
	return newHash
}

// SetBytes sets the bytes which represent the hash. An error is returned if
// the number of bytes passed in is not HashSize.
func (hash *Hash) SetBytes(newHash []byte) error {
	nhlen := len(newHash)
	if nhlen != HashSize {
		return errors.Errorf("invalid hash length of %d, want %d", nhlen, HashSize)
	}
	copy(hash[:], newHash)
	return nil
}

// IsEqual returns true if target is the same as the hash.
func (hash *Hash) IsEqual(target *Hash) bool {
	if hash == nil && target == nil {
		return true
	}
	if hash == nil || target == nil {
		return false
	}
	return *hash == *target
}

// Cmp compares hash and target and returns -1, 0, or 1 as hash is
// lexicographically smaller, equal to, or larger than target.
func (hash *Hash) Cmp(target *Hash) int {
	for i := 0; i < HashSize; i++ {
		switch {
		case hash[i] < target[i]:
			return -1
		case hash[i] > target[i]:
			return 1
		}
	}
	return 0
}

// Less returns true if hash is lexicographically smaller than target. Used
// by Sort.
func Less(hash, target *Hash) bool {
	return hash.Cmp(target) < 0
}

// NewHash returns a new Hash from a byte slice. An error is returned if the
// number of bytes passed in is not HashSize.
func NewHash(newHash []byte) (*Hash, error) {
	var hash Hash
	err := hash.SetBytes(newHash)
	if err != nil {
		return nil, err
	}
	return &hash, nil
}

// NewHashFromStr creates a Hash from a hash string. The string should be the
// hexadecimal string of the hash.
func NewHashFromStr(hash string) (*Hash, error) {
	ret := new(Hash)
	err := Decode(ret, hash)
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Decode decodes the form hexadecimal string into the Hash.
func Decode(dst *Hash, src string) error {
	hashStr := src
	if len(hashStr)%2 != 0 {
		hashStr = "0" + hashStr
	}
	if len(hashStr) > MaxHashStringSize {
		return ErrHashStrSize
	}

	var srcBytes []byte
	var err error
	srcBytes, err = hex.DecodeString(hashStr)
	if err != nil {
		return errors.WithStack(err)
	}

	if len(srcBytes) > HashSize {
		return ErrHashStrSize
	}

	copy(dst[HashSize-len(srcBytes):], srcBytes)
	return nil
}

// Strings returns a slice of strings representing the hashes in the given
// slice of hashes.
func Strings(hashes []*Hash) []string {
	strings := make([]string, len(hashes))
	for i, hash := range hashes {
		strings[i] = hash.String()
	}
	return strings
}

// JoinHashesStrings joins the string representation of the given hashes
// with separator between them.
func JoinHashesStrings(hashes []*Hash, separator string) string {
	result := ""
	for i, hash := range hashes {
		result += hash.String()
		if i != len(hashes)-1 {
			result += separator
		}
	}
	return result
}

// Sort sorts a slice of hashes in ascending lexicographic order.
func Sort(hashes []*Hash) {
	sortHashes(hashes)
}
