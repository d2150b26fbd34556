package daghash

import "sort"

func sortHashes(hashes []*Hash) {
	sort.Slice(hashes, func(i, j int) bool {
		return Less(hashes[i], hashes[j])
	})
}
