// Package treegen writes synthetic evidence trees for exercising and
// benchmarking scans.
//
// Generation is deterministic: the same Options always produce the same
// names, sizes and bytes, regardless of the worker count.
package treegen

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/calvinalkan/triagescan"
)

// Layout selects the directory shape.
type Layout int

const (
	// LayoutFlat puts every file directly in Out.
	LayoutFlat Layout = iota
	// LayoutApps mimics a mobile data partition:
	// Out/data/com.vendorNN.appNN/{databases,files,shared_prefs}.
	LayoutApps
	// LayoutFanout nests Depth levels of Fanout directories each.
	LayoutFanout
)

// ParseLayout parses a layout name.
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "flat":
		return LayoutFlat, nil
	case "apps":
		return LayoutApps, nil
	case "fanout":
		return LayoutFanout, nil
	default:
		return 0, fmt.Errorf("unknown layout %q (want flat, apps or fanout)", s)
	}
}

// extensions cycles through allowed and decoy names. Decoys differ only in
// case or trailing suffix so filtering mistakes show up in counts.
var extensions = []string{
	".db", ".sqlite", ".txt", ".log", ".json", ".xml", ".plist", ".rdb", ".aof",
	".DB", ".db-wal", ".jpg", ".bak", "",
}

// emptyEvery makes every n-th file zero bytes long.
const emptyEvery = 17

var appSubdirs = []string{"databases", "files", "shared_prefs"}

// Options configures Generate.
type Options struct {
	Out     string
	Files   uint64
	Workers int
	Layout  Layout
	Depth   int // LayoutFanout only
	Fanout  int // LayoutFanout only
	MaxBody int // upper bound for non-empty file sizes
}

// Stats summarizes a generated tree.
type Stats struct {
	Files uint64
	// Qualifying counts files a default scan collects.
	Qualifying uint64
}

// Generate writes the tree described by opts. Workers split the index range;
// the first error stops the remaining work.
func Generate(ctx context.Context, opts Options) (Stats, error) {
	if opts.Out == "" {
		return Stats{}, errors.New("output directory is required")
	}

	if opts.Files == 0 {
		return Stats{}, errors.New("files must be > 0")
	}

	opts.Workers = max(opts.Workers, 1)
	opts.MaxBody = max(opts.MaxBody, 1)
	opts.Depth = max(opts.Depth, 1)
	opts.Fanout = max(opts.Fanout, 2)

	if err := os.MkdirAll(opts.Out, 0o750); err != nil {
		return Stats{}, fmt.Errorf("mkdir %s: %w", opts.Out, err)
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var (
		files      atomic.Uint64
		qualifying atomic.Uint64
		wg         sync.WaitGroup
	)

	for w := range opts.Workers {
		start, end := splitRange(opts.Files, opts.Workers, w)

		wg.Add(1)

		go func() {
			defer wg.Done()

			if err := worker(ctx, &opts, start, end, &files, &qualifying); err != nil {
				cancel(err)
			}
		}()
	}

	wg.Wait()

	stats := Stats{Files: files.Load(), Qualifying: qualifying.Load()}
	if err := context.Cause(ctx); err != nil {
		return stats, err
	}

	return stats, nil
}

func worker(ctx context.Context, opts *Options, start, end uint64, files, qualifying *atomic.Uint64) error {
	created := make(map[string]struct{})
	body := make([]byte, opts.MaxBody)

	for i := start; i < end; i++ {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return context.Cause(ctx)
			}
		}

		dir := dirFor(opts, i)
		if _, ok := created[dir]; !ok {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("mkdir %s: %w", dir, err)
			}

			created[dir] = struct{}{}
		}

		ext := extensions[i%uint64(len(extensions))]
		size := sizeFor(opts, i)
		fill(body[:size], seedFor(i))

		path := filepath.Join(dir, fmt.Sprintf("item-%09d%s", i, ext))
		if err := os.WriteFile(path, body[:size], 0o600); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}

		files.Add(1)

		if qualifies(ext, int64(size)) {
			qualifying.Add(1)
		}
	}

	return nil
}

// qualifies mirrors the default scan filter: a default extension and a size
// in (0, MaxFileSize].
func qualifies(ext string, size int64) bool {
	return size > 0 && size <= triagescan.MaxFileSize && slices.Contains(triagescan.DefaultExtensions(), ext)
}

func dirFor(opts *Options, i uint64) string {
	switch opts.Layout {
	case LayoutApps:
		app := i / 64
		pkg := fmt.Sprintf("com.vendor%02d.app%02d", app/10%100, app%10)

		return filepath.Join(opts.Out, "data", pkg, appSubdirs[i%uint64(len(appSubdirs))])
	case LayoutFanout:
		base := uint64(opts.Fanout)
		index := i
		dir := opts.Out

		for level := range opts.Depth {
			dir = filepath.Join(dir, fmt.Sprintf("l%02d_%03d", level, index%base))
			index /= base
		}

		return dir
	default:
		return opts.Out
	}
}

func sizeFor(opts *Options, i uint64) int {
	if i%emptyEvery == 0 {
		return 0
	}

	return 1 + int(NewXorShift64(seedFor(i)).Next()%uint64(opts.MaxBody))
}

// seedFor derives a per-file seed from the index alone, so output does not
// depend on how the range was split.
func seedFor(i uint64) uint64 {
	seed := i ^ (i * 0x9E3779B97F4A7C15) ^ 0xD1B54A32D192ED03
	if seed == 0 {
		seed = 0x123456789abcdef0
	}

	return seed
}

// fill writes printable pseudo-random bytes into buf.
func fill(buf []byte, seed uint64) {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789 \n"

	rng := NewXorShift64(seed)
	for j := range buf {
		buf[j] = alphabet[rng.Next()%uint64(len(alphabet))]
	}
}

func splitRange(total uint64, workers, id int) (uint64, uint64) {
	w := uint64(workers)
	n := uint64(id)

	return total * n / w, total * (n + 1) / w
}

// XorShift64 is a fast PRNG.
type XorShift64 struct {
	state uint64
}

// NewXorShift64 seeds a generator; a zero seed is replaced.
func NewXorShift64(seed uint64) *XorShift64 {
	if seed == 0 {
		seed = 0x123456789abcdef0
	}

	return &XorShift64{state: seed}
}

// Next returns the next value.
func (rng *XorShift64) Next() uint64 {
	state := rng.state
	state ^= state >> 12
	state ^= state << 25
	state ^= state >> 27
	rng.state = state

	return state * 0x2545F4914F6CDD1D
}
