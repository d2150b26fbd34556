package main

import (
	"fmt"
	"os"

	flags "github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/daglabs/headerdb/config"
	"github.com/daglabs/headerdb/version"
)

const (
	insertSubCmd    = "insert"
	leavesSubCmd    = "leaves"
	lookupSubCmd    = "lookup"
	entriesSubCmd   = "entries"
	reconcileSubCmd = "reconcile"
)

type commonFlags struct {
	config.Flags
}

// rootFlags is the struct the top-level parser (as opposed to any one
// subcommand) is bound to; it adds the version flag, which makes sense only
// once, at the root.
type rootFlags struct {
	ShowVersion bool `short:"V" long:"version" description:"Display version information and exit"`
}

type insertConfig struct {
	File string `long:"file" short:"f" description:"Path to a file containing one canonically-encoded header" required:"true"`
	commonFlags
}

type leavesConfig struct {
	commonFlags
}

type lookupConfig struct {
	Height uint64 `long:"height" description:"Height of the header to look up" required:"true"`
	Hash   string `long:"hash" description:"Hex-encoded hash of the header to look up" required:"true"`
	commonFlags
}

type entriesConfig struct {
	MinHeight uint64 `long:"min-height" description:"Lower bound of the height range, inclusive"`
	MaxHeight uint64 `long:"max-height" description:"Upper bound of the height range, inclusive" required:"true"`
	Limit     int    `long:"limit" description:"Maximum number of headers to return" default:"100"`
	commonFlags
}

type reconcileConfig struct {
	NewHeight uint64 `long:"new-height" description:"Height of the new branch's head" required:"true"`
	NewHash   string `long:"new-hash" description:"Hex-encoded hash of the new branch's head" required:"true"`
	OldHeight uint64 `long:"old-height" description:"Height of the old branch's head" required:"true"`
	OldHash   string `long:"old-hash" description:"Hex-encoded hash of the old branch's head" required:"true"`
	commonFlags
}

// parseCommandLine mirrors kaspawallet's command-line shape: a top-level
// parser with one subcommand per operation, each with its own flag set
// embedding the shared store-location/network flags.
func parseCommandLine() (subCommand string, cfg interface{}) {
	top := &rootFlags{}
	parser := flags.NewParser(top, flags.PrintErrors|flags.HelpFlag)

	insertConf := &insertConfig{}
	parser.AddCommand(insertSubCmd, "Insert a header", "Insert one canonically-encoded header read from a file", insertConf)

	leavesConf := &leavesConfig{}
	parser.AddCommand(leavesSubCmd, "List current leaves", "List every stored header with no stored child", leavesConf)

	lookupConf := &lookupConfig{}
	parser.AddCommand(lookupSubCmd, "Look up a header", "Look up a stored header by (height, hash)", lookupConf)

	entriesConf := &entriesConfig{}
	parser.AddCommand(entriesSubCmd, "List headers by height range", "List stored headers in ascending height order", entriesConf)

	reconcileConf := &reconcileConfig{}
	parser.AddCommand(reconcileSubCmd, "Reconcile two branches", "Compute the transactions to reintroduce when switching branches", reconcileConf)

	_, err := parser.Parse()

	if top.ShowVersion {
		fmt.Println("headerdbtool", "version", version.Version())
		os.Exit(0)
	}

	if err != nil {
		var flagsErr *flags.Error
		if ok := errors.As(err, &flagsErr); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
		return "", nil
	}

	if parser.Command.Active == nil {
		parser.WriteHelp(os.Stderr)
		os.Exit(1)
	}

	switch parser.Command.Active.Name {
	case insertSubCmd:
		return insertSubCmd, insertConf
	case leavesSubCmd:
		return leavesSubCmd, leavesConf
	case lookupSubCmd:
		return lookupSubCmd, lookupConf
	case entriesSubCmd:
		return entriesSubCmd, entriesConf
	case reconcileSubCmd:
		return reconcileSubCmd, reconcileConf
	default:
		return "", nil
	}
}
