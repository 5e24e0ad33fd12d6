// Package main inspects the upload journal: submissions whose objects were
// written but never resolved, and optionally compensates them.
//
// Usage:
//
//	DATA_PATH=~/Estately/data go run ./cmd/dbinspect
//	go run ./cmd/dbinspect -data-path /var/lib/estately -sweep -grace 1h
//
// Stop the server first; the journal is held open exclusively.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/estately/estately-server/internal/config"
	"github.com/estately/estately-server/internal/journal"
	"github.com/estately/estately-server/internal/logger"
	"github.com/estately/estately-server/internal/objectstore"
)

var (
	dataPath = flag.String("data-path", "", "Data directory (default: $DATA_PATH or ~/Estately/data)")
	sweep    = flag.Bool("sweep", false, "Delete the objects of entries older than -grace")
	grace    = flag.Duration("grace", time.Hour, "Minimum entry age for -sweep")
)

func main() {
	flag.Parse()

	base := *dataPath
	if base == "" {
		base = os.Getenv("DATA_PATH")
	}
	if base == "" {
		base = os.ExpandEnv("$HOME/Estately/data")
	}
	data := config.DataConfig{BasePath: base}

	lg := logger.New(logger.Config{Level: logger.ParseLevel("warn"), Environment: "development"})

	j, err := journal.Open(data.JournalPath(), lg.Logger)
	if err != nil {
		log.Fatalf("Failed to open journal: %v", err)
	}
	defer j.Close()

	fmt.Println("=== Upload Journal ===")
	fmt.Println()

	entries, err := j.StartedBefore(time.Now())
	if err != nil {
		log.Fatalf("Failed to read journal: %v", err)
	}

	objects := 0
	for _, e := range entries {
		objects += len(e.Keys)
		fmt.Printf("%s  user=%s  bucket=%s  started=%s  age=%s\n",
			e.SubmissionID, e.UserID, e.Bucket,
			e.StartedAt.Format(time.RFC3339), time.Since(e.StartedAt).Round(time.Second))
		for _, key := range e.Keys {
			fmt.Printf("    %s\n", key)
		}
	}

	fmt.Println()
	fmt.Printf("Unresolved submissions: %d\n", len(entries))
	fmt.Printf("Objects at risk:        %d\n", objects)

	if !*sweep {
		return
	}

	// Only the property-images bucket takes uploads; the public URL is unused here.
	bucket, err := objectstore.NewBucket(data.ObjectsPath(), "property-images", "http://localhost")
	if err != nil {
		log.Fatalf("Failed to open bucket: %v", err)
	}
	if root, err := filepath.Abs(bucket.Root()); err == nil {
		fmt.Printf("\nSweeping entries older than %s from %s\n", *grace, root)
	}

	cleared, err := j.Sweep(context.Background(), bucket, *grace)
	if err != nil {
		log.Fatalf("Sweep failed after %d entries: %v", cleared, err)
	}
	fmt.Printf("Cleared %d entries\n", cleared)
}
