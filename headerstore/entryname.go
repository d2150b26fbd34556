package headerstore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/daglabs/headerdb/storeerrors"
	"github.com/daglabs/headerdb/util/daghash"
)

// entryHeightHexDigits mirrors refindex's ref name encoding: a tree entry's
// Name is "<16 lowercase hex digits>.<base64url hash>", the same shape
// used (with a namespace prefix) for ref names, so that sorting entries by
// Name gives height order.
const entryHeightHexDigits = 16

func formatEntryName(height uint64, hash daghash.Hash) string {
	return fmt.Sprintf("%0*x.%s", entryHeightHexDigits, height, hash.Base64URLString())
}

func parseEntryName(name string) (height uint64, hash daghash.Hash, err error) {
	dot := strings.IndexByte(name, '.')
	if dot != entryHeightHexDigits {
		return 0, daghash.Hash{}, storeerrors.New(storeerrors.KindCorruption, "headerstore.parseEntryName", name)
	}
	height, err = strconv.ParseUint(name[:dot], 16, 64)
	if err != nil {
		return 0, daghash.Hash{}, storeerrors.Wrap(storeerrors.KindCorruption, "headerstore.parseEntryName", name, err)
	}
	parsedHash, err := daghash.NewHashFromBase64URLString(name[dot+1:])
	if err != nil {
		return 0, daghash.Hash{}, storeerrors.Wrap(storeerrors.KindCorruption, "headerstore.parseEntryName", name, err)
	}
	return height, *parsedHash, nil
}
