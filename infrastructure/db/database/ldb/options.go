package ldb

import "github.com/syndtr/goleveldb/leveldb/opt"

const (
	// DefaultCacheMB and DefaultWriteBufMB are used whenever a caller
	// passes a non-positive size, keeping the teacher's original tuning
	// as the fallback.
	DefaultCacheMB    = 256
	DefaultWriteBufMB = 128
)

// Options is a function that returns a leveldb opt.Options struct for
// opening a database, sized by cacheMB/writeBufMB (in megabytes). A
// non-positive value for either falls back to its default. It's defined
// as a variable for the sake of testing.
var Options = func(cacheMB, writeBufMB int) *opt.Options {
	if cacheMB <= 0 {
		cacheMB = DefaultCacheMB
	}
	if writeBufMB <= 0 {
		writeBufMB = DefaultWriteBufMB
	}
	return &opt.Options{
		Compression:            opt.NoCompression,
		BlockCacheCapacity:     cacheMB * opt.MiB,
		WriteBuffer:            writeBufMB * opt.MiB,
		DisableSeeksCompaction: true,
	}
}
