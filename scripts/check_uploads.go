package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"cloakroom-backend/internal/config"
	"cloakroom-backend/internal/db"
	"cloakroom-backend/internal/storage"

	"go.uber.org/zap"
)

type photoRef struct {
	Kind     string
	ID       int64
	Status   string
	Path     string
	RecordID int64
}

func main() {
	fmt.Println("========================================")
	fmt.Println("   Check Uploaded Photos")
	fmt.Println("========================================")
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := db.Connect(ctx, cfg, zap.NewNop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	var store storage.Store
	if cfg.Storage.Driver == "r2" {
		store, err = storage.NewR2Store(ctx, cfg)
	} else {
		store, err = storage.NewLocalStore(cfg.Storage.UploadDir)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "open storage: %v\n", err)
		os.Exit(1)
	}

	rows, err := pool.Query(ctx, `
		SELECT 'person', r.id, r.status, r.person_photo_path, r.id
		FROM records r
		WHERE r.person_photo_path IS NOT NULL AND r.person_photo_path <> ''
		UNION ALL
		SELECT 'item', i.id, r.status, i.item_photo_path, r.id
		FROM items i JOIN records r ON r.id = i.record_id
		WHERE i.item_photo_path IS NOT NULL AND i.item_photo_path <> ''
		ORDER BY 5, 1, 2
	`)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query photos: %v\n", err)
		os.Exit(1)
	}

	var refs []photoRef
	for rows.Next() {
		var ref photoRef
		if err := rows.Scan(&ref.Kind, &ref.ID, &ref.Status, &ref.Path, &ref.RecordID); err != nil {
			rows.Close()
			fmt.Fprintf(os.Stderr, "scan: %v\n", err)
			os.Exit(1)
		}
		refs = append(refs, ref)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "query photos: %v\n", err)
		os.Exit(1)
	}

	missingByStatus := map[string]int{}
	checkErrors := 0
	for _, ref := range refs {
		ok, err := store.Exists(ctx, ref.Path)
		if err != nil {
			checkErrors++
			fmt.Printf("  ? %s photo %d (record %d): %v\n", ref.Kind, ref.ID, ref.RecordID, err)
			continue
		}
		if !ok {
			missingByStatus[ref.Status]++
			fmt.Printf("  ✗ %s photo %d (record %d, %s): %s\n", ref.Kind, ref.ID, ref.RecordID, ref.Status, ref.Path)
		}
	}

	fmt.Println()
	fmt.Printf("Checked %d photo paths (%s storage)\n", len(refs), cfg.Storage.Driver)
	total := 0
	for status, n := range missingByStatus {
		fmt.Printf("  missing, %s: %d\n", status, n)
		total += n
	}
	if total == 0 {
		fmt.Println("  ✓ no missing photos")
	}
	if checkErrors > 0 {
		fmt.Printf("  %d paths could not be checked\n", checkErrors)
		os.Exit(1)
	}
}
