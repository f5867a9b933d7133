package objectstore

import (
	"context"
	"fmt"
	"os"
	"sort"
)

// DownloadToFile writes key's contents to a new temp file with the given
// name suffix and returns its path. Callers are responsible for removing it.
func DownloadToFile(ctx context.Context, store Store, key, suffix string) (string, error) {
	data, err := store.GetBytes(ctx, key)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", key, err)
	}

	tmp, err := os.CreateTemp("", "pipeline-*"+suffix)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer tmp.Close()

	if _, err := tmp.Write(data); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	return tmp.Name(), nil
}

// FirstKeyUnder returns the alphabetically-first object key under prefix.
// storage_path is documented as a prefix, not a file key, so the caller
// doesn't know the input file's exact name in advance.
func FirstKeyUnder(ctx context.Context, store Store, prefix string) (string, error) {
	keys, err := store.ListKeys(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("list %s: %w", prefix, err)
	}
	if len(keys) == 0 {
		return "", fmt.Errorf("no object found under prefix %s", prefix)
	}
	sort.Strings(keys)
	return keys[0], nil
}
