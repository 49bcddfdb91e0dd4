package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// IngestDirectory walks root and submits every supported document under it.
// Per-file failures are collected in the results; only a cancelled context
// or an unreadable root stops the walk.
func (i *Ingestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]Result, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []Result
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			stats.Scanned++
			results = append(results, Result{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		stats.Scanned++
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		res, err := i.IngestPath(ctx, path)
		if err != nil {
			res.Err = err.Error()
			results = append(results, res)
			stats.Failed++
			return nil
		}
		results = append(results, res)
		stats.Succeeded++
		if res.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}

	i.logger.Info("ingest.directory.done",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return results, stats, nil
}
