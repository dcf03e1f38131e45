package feed

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/lysyi3m/card-comb/app/shard"
)

type ShardReader interface {
	Find(ctx context.Context, hexName string) (*shard.Record, error)
	Close() error
}

type ShardOpener func(path string) (ShardReader, error)

func OpenShard(path string) (ShardReader, error) {
	store, err := shard.Open(path)
	if err != nil {
		return nil, err
	}
	return store, nil
}

type ThumbnailResolver struct {
	open ShardOpener
}

func NewThumbnailResolver(open ShardOpener) *ThumbnailResolver {
	if open == nil {
		open = OpenShard
	}
	return &ThumbnailResolver{open: open}
}

// NormalizeKey reduces a thumbnail reference to the bare hex name used as
// the shard lookup key.
func NormalizeKey(ref string) string {
	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" {
		return strings.TrimLeft(ref, "/")
	}
	if u.Path == "" && u.Opaque != "" {
		return strings.TrimLeft(u.Opaque, "/")
	}
	return strings.TrimLeft(u.Path, "/")
}

// Run scans the shards in order and returns the first matching blob as a
// stream, or nil when none holds it. Shards that fail to open are skipped.
func (r *ThumbnailResolver) Run(ctx context.Context, shards []string, ref string) io.ReadCloser {
	key := NormalizeKey(ref)
	if key == "" {
		return nil
	}

	for _, path := range shards {
		if ctx.Err() != nil {
			return nil
		}

		data, found := r.lookup(ctx, path, key)
		if found {
			return io.NopCloser(bytes.NewReader(data))
		}
	}

	slog.Debug("Thumbnail not found in shards", "key", key, "shards", len(shards))
	return nil
}

func (r *ThumbnailResolver) lookup(ctx context.Context, path, key string) ([]byte, bool) {
	store, err := r.open(path)
	if err != nil {
		slog.Warn("Failed to open shard", "shard", path, "error", err)
		return nil, false
	}
	defer store.Close()

	record, err := store.Find(ctx, key)
	if err != nil {
		slog.Warn("Failed to look up thumbnail", "shard", path, "key", key, "error", err)
		return nil, false
	}
	if record == nil {
		return nil, false
	}

	return record.Data, true
}
