// Copyright (c) 2025 BVK Chaitanya

package gobs

// KeyValue is the backup file record type. Backup files are a gob stream of
// these items.
type KeyValue struct {
	Key   string
	Value []byte
}

// WatchList holds the asset ids the daemon keeps live market data
// subscriptions for.
type WatchList struct {
	AssetIDs []string
}
