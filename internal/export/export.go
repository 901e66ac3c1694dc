// Package export writes scan results to JSON or YAML files.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/calvinalkan/triagescan"
	"github.com/calvinalkan/triagescan/internal/filelock"
)

// File is one collected file.
type File struct {
	Path string `json:"path" yaml:"path"`
	Size int64  `json:"size" yaml:"size"`
}

// Report is the serialized form of one scan.
type Report struct {
	ScanID    string    `json:"scan_id,omitempty" yaml:"scan_id,omitempty"`
	Root      string    `json:"root" yaml:"root"`
	ScannedAt time.Time `json:"scanned_at" yaml:"scanned_at"`
	Count     int       `json:"count" yaml:"count"`
	Files     []File    `json:"files" yaml:"files"`
}

// NewReport copies set into a Report. The set can be released afterwards.
func NewReport(root string, scannedAt time.Time, set *triagescan.PathSet) *Report {
	r := &Report{
		Root:      root,
		ScannedAt: scannedAt.UTC(),
		Count:     set.Len(),
		Files:     make([]File, 0, set.Len()),
	}

	for path, size := range set.All() {
		r.Files = append(r.Files, File{Path: path, Size: size})
	}

	return r
}

// Encode serializes r in format ("json" or "yaml").
func Encode(r *Report, format string) ([]byte, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}

		return append(data, '\n'), nil
	case "yaml":
		data, err := yaml.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}

		return data, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// Write encodes r to w.
func Write(w io.Writer, r *Report, format string) error {
	data, err := Encode(r, format)
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}

// WriteFile replaces path with the encoded report while holding path's lock
// file.
func WriteFile(ctx context.Context, path string, r *Report, format string) error {
	data, err := Encode(r, format)
	if err != nil {
		return err
	}

	return filelock.WriteLocked(ctx, path, data)
}

// Decode parses a report previously produced by Encode.
func Decode(data []byte, format string) (*Report, error) {
	var r Report

	switch format {
	case "json":
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}

	return &r, nil
}
