// Command headerdbtool is a manual inspection/debugging tool for an
// on-disk header store: insert a header from a file, list leaves, look up
// a header by key, list headers by height range, and run fork
// reconciliation against a trivial (always-empty) payload collaborator.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/daglabs/headerdb/blockheader"
	"github.com/daglabs/headerdb/config"
	"github.com/daglabs/headerdb/reconcile"
	"github.com/daglabs/headerdb/store"
	"github.com/daglabs/headerdb/util/daghash"
	"github.com/daglabs/headerdb/version"
)

var log = store.Backend.Logger("TOOL")

func main() {
	subCommand, cfg := parseCommandLine()

	var flags *config.Flags
	switch c := cfg.(type) {
	case *insertConfig:
		flags = &c.Flags
	case *leavesConfig:
		flags = &c.Flags
	case *lookupConfig:
		flags = &c.Flags
	case *entriesConfig:
		flags = &c.Flags
	case *reconcileConfig:
		flags = &c.Flags
	default:
		fmt.Fprintln(os.Stderr, "unknown subcommand")
		os.Exit(1)
	}

	store.SetLogLevel(flags.LogLevelOrDefault())
	log.SetLevel(flags.LogLevelOrDefault())
	if err := store.Backend.AddLogWriter(os.Stdout, flags.LogLevelOrDefault()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := store.Backend.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer store.Backend.Close()
	log.Infof("headerdbtool version %s", version.Version())

	s, err := store.Open(flags.DataDir, flags.NetParams(), store.Options{
		HeaderCacheSize:    flags.HeaderCacheSize,
		TreeEntryCacheSize: flags.TreeEntryCacheSize,
		ForkDepthLimit:     flags.ForkDepthLimit,
		LevelDBCacheMB:     flags.LevelDBCacheMB,
		LevelDBWriteBufMB:  flags.LevelDBWriteBufMB,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = s.Close(context.Background()) }()

	ctx := context.Background()
	switch subCommand {
	case insertSubCmd:
		err = runInsert(ctx, s, cfg.(*insertConfig))
	case leavesSubCmd:
		err = runLeaves(ctx, s)
	case lookupSubCmd:
		err = runLookup(ctx, s, cfg.(*lookupConfig))
	case entriesSubCmd:
		err = runEntries(ctx, s, cfg.(*entriesConfig))
	case reconcileSubCmd:
		err = runReconcile(ctx, s, cfg.(*reconcileConfig))
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runInsert(ctx context.Context, s *store.Store, cfg *insertConfig) error {
	data, err := ioutil.ReadFile(cfg.File)
	if err != nil {
		return err
	}
	header, err := blockheader.Decode(data)
	if err != nil {
		return err
	}
	result, err := s.Insert(ctx, header)
	if err != nil {
		return err
	}
	fmt.Printf("%s height=%d hash=%s\n", result, header.Height, header.Hash())
	return nil
}

func runLeaves(ctx context.Context, s *store.Store) error {
	leaves, err := s.Leaves(ctx)
	if err != nil {
		return err
	}
	for _, header := range leaves {
		fmt.Printf("height=%d hash=%s\n", header.Height, header.Hash())
	}
	return nil
}

func runLookup(ctx context.Context, s *store.Store, cfg *lookupConfig) error {
	hash, err := parseHash(cfg.Hash)
	if err != nil {
		return err
	}
	header, found, err := s.LookupByKey(ctx, cfg.Height, hash)
	if err != nil {
		return err
	}
	if !found {
		fmt.Println("not found")
		return nil
	}
	fmt.Printf("height=%d hash=%s chainId=%d parent=%s payload=%s\n",
		header.Height, header.Hash(), header.ChainID, header.ParentHash, header.PayloadHash)
	return nil
}

func runEntries(ctx context.Context, s *store.Store, cfg *entriesConfig) error {
	headers, complete, err := s.EntriesByRank(ctx, cfg.MinHeight, cfg.MaxHeight, cfg.Limit)
	if err != nil {
		return err
	}
	for _, header := range headers {
		fmt.Printf("height=%d hash=%s\n", header.Height, header.Hash())
	}
	if !complete {
		fmt.Println("(truncated by --limit)")
	}
	return nil
}

func runReconcile(ctx context.Context, s *store.Store, cfg *reconcileConfig) error {
	newHash, err := parseHash(cfg.NewHash)
	if err != nil {
		return err
	}
	oldHash, err := parseHash(cfg.OldHash)
	if err != nil {
		return err
	}

	// This tool has no payload database to consult, so every header is
	// treated as carrying no transactions; it is useful for checking that
	// the branches and their least common ancestor resolve correctly, not
	// for producing a real mempool reintroduction set.
	emptyPayloads := func(*blockheader.BlockHeader) (map[reconcile.TxHash]struct{}, error) {
		return nil, nil
	}

	result, err := s.Reconcile(ctx,
		reconcile.Head{Height: cfg.NewHeight, Hash: newHash},
		reconcile.Head{Height: cfg.OldHeight, Hash: oldHash},
		emptyPayloads,
	)
	if err != nil {
		return err
	}
	fmt.Printf("%d transactions to reintroduce\n", len(result))
	return nil
}

func parseHash(s string) (daghash.Hash, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return daghash.Hash{}, err
	}
	hash, err := daghash.NewHash(data)
	if err != nil {
		return daghash.Hash{}, err
	}
	return *hash, nil
}
