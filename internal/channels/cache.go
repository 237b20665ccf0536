// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package channels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ManuGH/dvrtalk/internal/log"
	"github.com/ManuGH/dvrtalk/internal/metrics"
	"github.com/ManuGH/dvrtalk/internal/query"
	"github.com/ManuGH/dvrtalk/internal/rpc"
	"github.com/google/renameio/v2"
)

// FetchFunc downloads the full lineup.
type FetchFunc func(ctx context.Context) ([]Channel, error)

// ReadFile loads a lineup previously written by WriteFile.
func ReadFile(path string) ([]Channel, error) {
	// path originates from controlled configuration
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304
	if err != nil {
		return nil, err
	}
	var out []Channel
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse channel cache %s: %w", path, err)
	}
	return out, nil
}

// WriteFile stores the lineup atomically.
func WriteFile(ctx context.Context, path string, lineup []Channel) error {
	logger := log.WithComponentFromContext(ctx, "channels")

	data, err := json.MarshalIndent(lineup, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create channel cache dir: %w", err)
		}
	}

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending channel cache: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending channel cache")
		}
	}()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write channel cache: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace channel cache: %w", err)
	}
	return nil
}

// Load reads the lineup from path, or downloads it with fetch and caches it
// when the file does not exist. A failed cache write is logged, not fatal.
func Load(ctx context.Context, path string, fetch FetchFunc) (*Directory, error) {
	logger := log.WithComponentFromContext(ctx, "channels")

	lineup, err := ReadFile(path)
	switch {
	case err == nil:
		metrics.IncChannelDirectoryLoad("cache", nil)
		logger.Info().Str("path", path).Int("count", len(lineup)).Msg("loaded channel lineup")
		return publish(NewDirectory(lineup)), nil
	case !errors.Is(err, fs.ErrNotExist):
		metrics.IncChannelDirectoryLoad("cache", err)
		return nil, err
	case fetch == nil:
		return nil, fmt.Errorf("channel cache %s missing and no fetcher configured: %w", path, err)
	}

	logger.Warn().Str("path", path).Msg("channel lineup not cached, downloading from DVR")
	lineup, err = fetch(ctx)
	metrics.IncChannelDirectoryLoad("download", err)
	if err != nil {
		return nil, fmt.Errorf("download channel lineup: %w", err)
	}
	if err := WriteFile(ctx, path, lineup); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("failed to cache channel lineup")
	}
	return publish(NewDirectory(lineup)), nil
}

func publish(d *Directory) *Directory {
	hd := len(d.HD())
	metrics.RecordChannelTypeCounts(hd, d.Len()-hd)
	return d
}

// Downloader returns a FetchFunc running a channel search in its own session.
func Downloader(opener rpc.Opener, pager query.Pager) FetchFunc {
	return func(ctx context.Context) ([]Channel, error) {
		sess, err := opener.Open(ctx)
		if err != nil {
			return nil, err
		}
		defer func() { _ = sess.Close() }()

		recs, err := query.NewSearcher(sess, pager).WithLevelOfDetail(query.DetailHigh).Channels(ctx, nil)
		if err != nil {
			return nil, err
		}
		return FromRecords(recs), nil
	}
}
