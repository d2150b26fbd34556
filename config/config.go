// Package config loads the header store's command-line and on-disk
// configuration: a go-flags-parsed struct, a network-selector that resolves
// to a registered dagconfig.Params, and sane defaults for everything else.
package config

import (
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/daglabs/headerdb/dagconfig"
	"github.com/daglabs/headerdb/infrastructure/logger"
)

const (
	defaultLogLevel           = "info"
	defaultForkDepthLimit     = 4096
	defaultHeaderCacheSize    = 4096
	defaultTreeEntryCacheSize = 1024
	appName                   = "headerdb"
)

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", appName)
	}
	return filepath.Join(home, "."+appName)
}

// NetworkFlags selects which registered dagconfig.Params a store is opened
// against. Exactly one of these may be set; the zero value selects mainnet.
type NetworkFlags struct {
	Devnet bool `long:"devnet" description:"Use the development parameter set instead of mainnet"`
}

// resolve returns the dagconfig.Params this NetworkFlags selects.
func (n *NetworkFlags) resolve() (*dagconfig.Params, error) {
	if n.Devnet {
		return &dagconfig.DevnetParams, nil
	}
	return &dagconfig.MainnetParams, nil
}

// Flags is the full set of command-line/config-file options for
// cmd/headerdbtool and any other binary built over this store.
type Flags struct {
	DataDir            string `short:"b" long:"datadir" description:"Location of the header store data directory"`
	LogLevel           string `short:"l" long:"loglevel" description:"Logging level {trace, debug, info, warn, error, critical, off}"`
	ForkDepthLimit     int    `long:"forkdepthlimit" description:"Maximum headers either branch of a reconcile may walk before failing with ForkTooDeep"`
	HeaderCacheSize    int    `long:"headercache" description:"Number of decoded headers to keep in the read cache"`
	TreeEntryCacheSize int    `long:"treecache" description:"Number of tree-object entry lists to keep in the read cache"`
	LevelDBCacheMB     int    `long:"leveldbcache" description:"LevelDB block cache size, in megabytes"`
	LevelDBWriteBufMB  int    `long:"leveldbwritebuf" description:"LevelDB write buffer size, in megabytes"`

	NetworkFlags
}

// NetParams returns the dagconfig.Params this config's NetworkFlags select.
func (cfg *Flags) NetParams() *dagconfig.Params {
	params, _ := cfg.resolve()
	return params
}

// defaultFlags returns a Flags populated with this package's defaults,
// before command-line parsing overrides them.
func defaultFlags() *Flags {
	return &Flags{
		DataDir:            defaultDataDir(),
		LogLevel:           defaultLogLevel,
		ForkDepthLimit:     defaultForkDepthLimit,
		HeaderCacheSize:    defaultHeaderCacheSize,
		TreeEntryCacheSize: defaultTreeEntryCacheSize,
		LevelDBCacheMB:     256,
		LevelDBWriteBufMB:  128,
	}
}

// Load parses args (typically os.Args[1:]) into a Flags, resolves the
// selected network to a registered dagconfig.Params, and namespaces DataDir
// by that network's name, so mainnet and devnet data never collide on disk.
func Load(args []string) (*Flags, []string, error) {
	cfg := defaultFlags()
	parser := flags.NewParser(cfg, flags.Default)
	remaining, err := parser.ParseArgs(args)
	if err != nil {
		var flagsErr *flags.Error
		if ok := errors.As(err, &flagsErr); !ok || flagsErr.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}

	cfg.DataDir = filepath.Join(cfg.DataDir, cfg.NetParams().Name)

	return cfg, remaining, nil
}

// LogLevelOrDefault parses cfg.LogLevel, falling back to LevelInfo for an
// unrecognized value rather than failing the whole config load over a typo
// in a rarely-touched flag.
func (cfg *Flags) LogLevelOrDefault() logger.Level {
	level, ok := logger.LevelFromString(cfg.LogLevel)
	if !ok {
		return logger.LevelInfo
	}
	return level
}
