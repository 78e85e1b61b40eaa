// Package reconstruct rebuilds one continuous recording from uploaded
// segments. Segment names embed their start time in a sortable form, so
// sorting names is enough to restore capture order.
package reconstruct

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
)

// Source is the read side of a remote store.
type Source interface {
	List(ctx context.Context) ([]string, error)
	Get(ctx context.Context, name string) (io.ReadCloser, error)
}

// Result summarizes an assembly run.
type Result struct {
	Objects int
	Bytes   int64
}

// Assemble writes every object in src to w, one after the other, in
// lexicographic name order.
func Assemble(ctx context.Context, src Source, w io.Writer, log *slog.Logger) (Result, error) {
	names, err := src.List(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("listing objects: %w", err)
	}
	sort.Strings(names)
	log.Info("assembling segments", slog.Int("objects", len(names)))

	var res Result
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		n, err := copyObject(ctx, src, name, w)
		res.Bytes += n
		if err != nil {
			return res, err
		}
		res.Objects++
		log.Debug("segment appended", slog.String("object", name), slog.Int64("bytes", n))
	}
	return res, nil
}

func copyObject(ctx context.Context, src Source, name string, w io.Writer) (int64, error) {
	rc, err := src.Get(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("downloading %s: %w", name, err)
	}
	defer rc.Close()

	n, err := io.Copy(w, rc)
	if err != nil {
		return n, fmt.Errorf("copying %s: %w", name, err)
	}
	return n, nil
}
