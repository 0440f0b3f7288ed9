// Command mnemo-backup snapshots the graph file on a schedule or on demand.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mnemo-ai/mnemo/internal/backup"
	"github.com/mnemo-ai/mnemo/internal/config"
)

var (
	graphPath = flag.String("graph", "", "Path to the graph file (overrides config)")
	dir       = flag.String("dir", "", "Snapshot directory (overrides config)")
	interval  = flag.Duration("interval", time.Hour, "Snapshot interval for service mode")
	keep      = flag.Int("keep", 0, "Snapshots to retain (overrides config)")
	verify    = flag.Bool("verify", true, "Reload each snapshot after copying")
	oneshot   = flag.Bool("oneshot", false, "Take a single snapshot and exit")
	restore   = flag.String("restore", "", "Restore the graph file from a snapshot and exit")
	listCmd   = flag.Bool("list", false, "List stored snapshots and exit")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	opts := backup.Options{
		GraphPath: cfg.Storage.GraphPath(),
		Dir:       cfg.Backup.Path,
		Interval:  *interval,
		Keep:      cfg.Backup.Keep,
		Verify:    *verify,
	}
	if *graphPath != "" {
		opts.GraphPath = *graphPath
	}
	if *dir != "" {
		opts.Dir = *dir
	}
	if *keep > 0 {
		opts.Keep = *keep
	}

	service, err := backup.NewService(opts)
	if err != nil {
		log.Fatalf("failed to create backup service: %v", err)
	}

	ctx := context.Background()

	switch {
	case *restore != "":
		if err := service.Restore(ctx, *restore); err != nil {
			log.Fatalf("restore failed: %v", err)
		}
		log.Println("graph file restored")
	case *listCmd:
		listSnapshots(service)
	case *oneshot:
		result, err := service.SnapshotNow(ctx)
		if err != nil {
			log.Fatalf("snapshot failed: %v", err)
		}
		log.Printf("snapshot complete: %s (%d bytes, %v, verified=%v)",
			result.Path, result.Size, result.Duration.Round(time.Millisecond), result.Verified)
	default:
		runService(ctx, service)
	}
}

func listSnapshots(service *backup.Service) {
	snapshots, err := service.ListSnapshots()
	if err != nil {
		log.Fatalf("failed to list snapshots: %v", err)
	}
	if len(snapshots) == 0 {
		fmt.Println("no snapshots found")
		return
	}
	fmt.Printf("%d snapshot(s):\n", len(snapshots))
	for _, s := range snapshots {
		fmt.Printf("  %s  %8d bytes  %s\n", s.Path, s.Size, s.Timestamp.Format(time.RFC3339))
	}
}

func runService(ctx context.Context, service *backup.Service) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := service.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("backup service error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("stopping backup service")
	service.Stop()
}
