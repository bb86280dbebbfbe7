// savedump prints the contents of save slots as YAML.
//
// Usage:
//
//	go run ./cmd/savedump <command> [-config path] [-slot name]
//
// Commands: list, show
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/l1jgo/saveable/internal/config"
	"github.com/l1jgo/saveable/internal/instance"
	"github.com/l1jgo/saveable/internal/persist"
	"github.com/l1jgo/saveable/internal/tracker"
	"github.com/l1jgo/saveable/internal/transport"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type slotDump struct {
	Slot      string            `yaml:"slot"`
	Instances []instance.Record `yaml:"instances"`
	Other     []string          `yaml:"other_participants,omitempty"`
}

type store interface {
	transport.Storage
	transport.Lister
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: savedump <list|show> [-config path] [-slot name]")
		os.Exit(2)
	}
	cmd := os.Args[1]

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	cfgPath := fs.String("config", "config/server.toml", "server config")
	slot := fs.String("slot", "", "slot to show (default: tracking.slot)")
	_ = fs.Parse(os.Args[2:])

	if err := run(cmd, *cfgPath, *slot); err != nil {
		fmt.Fprintf(os.Stderr, "savedump: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd, cfgPath, slot string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, closeFn, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	switch cmd {
	case "list":
		slots, err := st.Slots(ctx)
		if err != nil {
			return err
		}
		for _, s := range slots {
			fmt.Printf("%-24s %s\n", s.Slot, s.SavedAt.Format(time.RFC3339))
		}
		return nil
	case "show":
		if slot == "" {
			slot = cfg.Tracking.Slot
		}
		return show(ctx, st, slot)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func show(ctx context.Context, st transport.Storage, slot string) error {
	entries, err := st.Read(ctx, slot)
	if err != nil {
		return fmt.Errorf("read slot %s: %w", slot, err)
	}
	dump := slotDump{Slot: slot, Instances: []instance.Record{}}
	for id, data := range entries {
		if id != tracker.SaveID {
			dump.Other = append(dump.Other, id)
			continue
		}
		records, err := instance.Decode(data)
		if err != nil {
			return fmt.Errorf("decode %s: %w", id, err)
		}
		dump.Instances = records
	}
	sort.Strings(dump.Other)

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(dump)
}

func open(ctx context.Context, cfg *config.Config) (store, func(), error) {
	if cfg.Storage.Driver == "postgres" {
		db, err := persist.NewDB(ctx, cfg.Database, zap.NewNop())
		if err != nil {
			return nil, nil, err
		}
		return persist.NewSaveRepo(db), db.Close, nil
	}
	fs, err := transport.NewFileStorage(cfg.Storage.Dir)
	if err != nil {
		return nil, nil, err
	}
	return fs, func() {}, nil
}
