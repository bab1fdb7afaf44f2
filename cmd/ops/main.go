package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"time"

	"scavenge/internal/ops"
	"scavenge/internal/save"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "backup":
		err = cmdBackup(ctx, os.Args[2:])
	case "restore":
		err = cmdRestore(os.Args[2:])
	case "inspect":
		err = cmdInspect(ctx, os.Args[2:])
	case "drill":
		err = cmdDrill(ctx, os.Args[2:])
	default:
		printUsage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func cmdBackup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	dataDir := fs.String("data-dir", "data", "path to data directory")
	out := fs.String("out", "", "output archive path (.tar.gz)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *out == "" {
		ts := time.Now().UTC().Format("20060102T150405Z")
		*out = filepath.Join("backups", "scavenge-"+ts+".tar.gz")
	}

	if err := ops.BackupDataDir(ctx, *dataDir, *out); err != nil {
		return err
	}
	fmt.Println(*out)
	return nil
}

func cmdRestore(args []string) error {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	archive := fs.String("archive", "", "input backup archive (.tar.gz)")
	target := fs.String("target-dir", "data-restored", "restore target directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *archive == "" {
		return fmt.Errorf("archive is required")
	}
	return ops.RestoreDataDir(*archive, *target)
}

func cmdInspect(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	dataDir := fs.String("data-dir", "data", "path to data directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rep, err := ops.Inspect(ctx, *dataDir)
	if err != nil {
		return err
	}
	printReport(rep)
	return nil
}

func cmdDrill(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("drill", flag.ContinueOnError)
	dataDir := fs.String("data-dir", "data", "path to data directory")
	workDir := fs.String("work-dir", os.TempDir(), "temporary workspace for drill artifacts")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := os.MkdirAll(*workDir, 0o755); err != nil {
		return err
	}
	ts := time.Now().UTC().Format("20060102T150405Z")
	archive := filepath.Join(*workDir, "scavenge-drill-"+ts+".tar.gz")
	restoreDir := filepath.Join(*workDir, "scavenge-drill-restore-"+ts)

	before, err := ops.Inspect(ctx, *dataDir)
	if err != nil {
		return err
	}
	if err := ops.BackupDataDir(ctx, *dataDir, archive); err != nil {
		return err
	}
	if err := ops.RestoreDataDir(archive, restoreDir); err != nil {
		return err
	}
	after, err := ops.Inspect(ctx, restoreDir)
	if err != nil {
		return err
	}
	if !before.Same(after) {
		return fmt.Errorf("restored save differs from %s", *dataDir)
	}

	fmt.Println("backup:", archive)
	fmt.Println("restored:", restoreDir)
	printReport(after)
	return nil
}

func printReport(rep ops.Report) {
	fmt.Printf("driver: %s\nphase: %s\n", rep.Driver, rep.Phase)
	keys := make([]string, 0, len(rep.Values))
	for k := range rep.Values {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-28s %d bytes\n", k, len(rep.Values[save.Key(k)]))
	}
}

func printUsage() {
	fmt.Println("usage:")
	fmt.Println("  scavenge-ops backup  --data-dir data --out backups/backup.tar.gz")
	fmt.Println("  scavenge-ops restore --archive backups/backup.tar.gz --target-dir data-restored")
	fmt.Println("  scavenge-ops inspect --data-dir data")
	fmt.Println("  scavenge-ops drill   --data-dir data --work-dir /tmp")
}
