package triagescan

import (
	"log/slog"
)

// Option configures [Scan] and [ReadFile].
// Options are applied in order.
type Option func(*options)

// WithExtensions replaces the extension allow-list.
//
// Each entry is the final "."-delimited suffix including the dot (".db").
// Matching is exact and case-sensitive. Entries without a leading dot get one.
// An empty list restores [DefaultExtensions].
func WithExtensions(exts ...string) Option {
	return func(o *options) {
		o.Extensions = exts
	}
}

// WithMaxFileSize sets the size ceiling in bytes. Files larger than this are
// neither collected nor extracted.
//
// Values <= 0 use [MaxFileSize].
func WithMaxFileSize(n int64) Option {
	return func(o *options) {
		o.MaxFileSize = n
	}
}

// WithMaxDepth bounds how deep [Scan] descends below the root. Files directly
// in the root are at depth 1.
//
// # Default
//
// 0: no bound. Depth then equals the directory-tree depth; the walk uses an
// explicit stack, so a deep tree costs one open directory handle per level,
// not native stack.
func WithMaxDepth(n int) Option {
	return func(o *options) {
		o.MaxDepth = n
	}
}

// WithFS runs the walker and extractor against fsys instead of the native
// filesystem. A nil fsys uses [OS].
func WithFS(fsys FS) Option {
	return func(o *options) {
		o.FS = fsys
	}
}

// WithLogger sets the logger for debug records about skipped subtrees and
// rejected candidates. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.Logger = l
	}
}

// WithOnError registers a callback for failures that the engine absorbs:
// unreadable directories, vanished files, undecodable names.
//
// Every error passed is an [*IOError]. The callback runs synchronously on the
// calling goroutine; it cannot stop the scan.
func WithOnError(fn func(err error)) Option {
	return func(o *options) {
		o.OnError = fn
	}
}

type options struct {
	// Extensions is the allow-list (with leading dots).
	Extensions []string
	// MaxFileSize is the size ceiling in bytes.
	MaxFileSize int64
	// MaxDepth bounds descent (0 = unbounded).
	MaxDepth int
	// FS is the filesystem to run against.
	FS FS
	// Logger receives debug records.
	Logger *slog.Logger
	// OnError receives absorbed failures.
	OnError func(err error)
}

// applyOptions merges option values and applies defaults.
func applyOptions(opts []Option) options {
	cfg := options{}

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if len(cfg.Extensions) == 0 {
		cfg.Extensions = DefaultExtensions()
	} else {
		cfg.Extensions = normalizeExtensions(cfg.Extensions)
	}

	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = MaxFileSize
	}

	if cfg.MaxDepth < 0 {
		cfg.MaxDepth = 0
	}

	if cfg.FS == nil {
		cfg.FS = OS()
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	return cfg
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))

	for _, ext := range exts {
		if ext == "" {
			continue
		}

		if ext[0] != '.' {
			ext = "." + ext
		}

		out = append(out, ext)
	}

	if len(out) == 0 {
		return DefaultExtensions()
	}

	return out
}

// report hands err to the OnError callback, if any.
func (o *options) report(err *IOError) {
	if o.OnError != nil {
		o.OnError(err)
	}
}
