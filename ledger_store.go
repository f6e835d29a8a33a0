package main

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
)

// ===== ledger persistence =====

// The ledger survives restarts through a small JSON state file. Loading
// tolerates a missing or corrupt file; writing goes through a temp file and
// rename so a crash never leaves a half-written state behind.

func loadUsageState(path string) []usageRecord {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("<ledger> read state %s: %v", path, err)
		}
		return nil
	}
	var records []usageRecord
	if err := json.Unmarshal(data, &records); err != nil {
		log.Printf("<ledger> state parse error: %v", err)
		return nil
	}
	return records
}

func writeUsageState(path string, records []usageRecord) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// restore seeds the ledger with previously persisted records, trimming to
// capacity from the oldest end.
func (l *usageLedger) restore(records []usageRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(records) > l.capacity {
		records = records[len(records)-l.capacity:]
	}
	l.records = append(l.records[:0], records...)
}

// persistUsage snapshots the ledger to the configured state file, if any.
func (gw *Gateway) persistUsage() {
	path := gw.config.Server.usageStatePath()
	if path == "" {
		return
	}
	if err := writeUsageState(path, gw.ledger.snapshot()); err != nil {
		log.Printf("<ledger> persist state: %v", err)
	}
}
