package refindex

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/daglabs/headerdb/util/daghash"
)

// Namespaces under which this package stores references. Every stored
// header gets a HeaderNamespace ref; a header with no stored child also
// gets a LeafNamespace ref.
const (
	HeaderNamespace = "bh"
	LeafNamespace   = "leaf"
)

// heightHexDigits is the fixed width of the hex-encoded height component of
// a ref name, chosen so lexicographic name order follows height order within
// a namespace. Names of equal height are ordered by their base64url hash
// text, which does not follow the byte order of the hashes.
const heightHexDigits = 16

// FormatRefName builds the on-disk ref name for a (namespace, height, hash)
// triple: "<namespace>/<16 lowercase hex digits>.<base64url hash>".
func FormatRefName(namespace string, height uint64, hash daghash.Hash) string {
	return fmt.Sprintf("%s/%0*x.%s", namespace, heightHexDigits, height, hash.Base64URLString())
}

// FormatHeightPrefixGlob builds a glob matching every ref name at height
// within namespace, regardless of hash: "<namespace>/<16 hex digits>.*".
func FormatHeightPrefixGlob(namespace string, height uint64) string {
	return fmt.Sprintf("%s/%0*x.*", namespace, heightHexDigits, height)
}

// ParseRefName splits a ref name back into its namespace, height, and hash.
// Malformed names return an error; callers enumerating refs written by
// external tooling should treat this as "skip, don't fail" per §4.4.
func ParseRefName(name string) (namespace string, height uint64, hash daghash.Hash, err error) {
	slash := strings.IndexByte(name, '/')
	if slash < 0 {
		return "", 0, daghash.Hash{}, errors.Errorf("ref name %q has no namespace separator", name)
	}
	namespace = name[:slash]
	rest := name[slash+1:]

	dot := strings.IndexByte(rest, '.')
	if dot != heightHexDigits {
		return "", 0, daghash.Hash{}, errors.Errorf("ref name %q has malformed height component", name)
	}

	height, err = strconv.ParseUint(rest[:dot], 16, 64)
	if err != nil {
		return "", 0, daghash.Hash{}, errors.Wrapf(err, "ref name %q has malformed height component", name)
	}

	parsedHash, err := daghash.NewHashFromBase64URLString(rest[dot+1:])
	if err != nil {
		return "", 0, daghash.Hash{}, errors.Wrapf(err, "ref name %q has malformed hash component", name)
	}

	return namespace, height, *parsedHash, nil
}

// literalPrefix returns the longest prefix of pattern that contains no glob
// metacharacter, used to bound a leveldb range scan before the full glob
// match is applied.
func literalPrefix(pattern string) string {
	if i := strings.IndexAny(pattern, "*?["); i >= 0 {
		return pattern[:i]
	}
	return pattern
}

// matchGlob reports whether name matches pattern, where "*" may appear
// anywhere in pattern. Matching follows path.Match, so "*" does not match
// the "/" namespace separator.
func matchGlob(pattern, name string) bool {
	matched, err := path.Match(pattern, name)
	return err == nil && matched
}
