package storage

import (
	"errors"
	"io/fs"
	"path/filepath"
)

// DiskUsage reports the on-disk footprint of the backend described by opts,
// including SQLite's WAL sidecar files. Memory backends report 0.
func DiskUsage(opts Options) (int64, error) {
	switch opts.Backend {
	case BackendSQLite, "":
		p := opts.DatabasePath
		if p == "" {
			return 0, nil
		}
		return DiskUsageBytes(p, p+"-wal", p+"-shm")
	case BackendBadger:
		return DiskUsageBytes(opts.BadgerPath)
	default:
		return 0, nil
	}
}

// DiskUsageBytes sums the size of regular files under the given paths.
// Missing and empty paths count as zero. Symlinks are not followed.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		n, err := pathSize(p)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func pathSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	return total, err
}

