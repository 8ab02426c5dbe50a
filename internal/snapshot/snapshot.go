// Package snapshot moves a baseline of records between stores.
//
// A baseline file is a zstd stream wrapping a YAML document stream: one
// Header document followed by one document per record.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"github.com/roach88/fcd/internal/digest"
	"github.com/roach88/fcd/internal/fcderr"
	"github.com/roach88/fcd/internal/store"
)

// FormatName identifies a baseline file.
const FormatName = "fcd-baseline"

// Version is the baseline layout version written by Export.
const Version = 1

// Header is the first document of a baseline.
type Header struct {
	Format     string    `yaml:"format"`
	Version    int       `yaml:"version"`
	Algorithm  string    `yaml:"algorithm"`
	ExportedAt time.Time `yaml:"exported_at"`
	Count      int       `yaml:"count"`
}

// Writer is where Import puts records.
type Writer interface {
	PutMany(ctx context.Context, recs []store.Record) error
}

// Export writes recs to w as a compressed baseline.
func Export(ctx context.Context, recs []store.Record, w io.Writer, now time.Time) error {
	zw, err := zstd.NewWriter(w,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return fcderr.Wrap(err, fcderr.IOError, "create compressor")
	}

	enc := yaml.NewEncoder(zw)
	enc.SetIndent(2)

	header := Header{
		Format:     FormatName,
		Version:    Version,
		Algorithm:  digest.Algorithm,
		ExportedAt: now.UTC(),
		Count:      len(recs),
	}
	if err := enc.Encode(header); err != nil {
		zw.Close()
		return fcderr.Wrap(err, fcderr.IOError, "write baseline header")
	}
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			zw.Close()
			return err
		}
		if err := enc.Encode(rec); err != nil {
			zw.Close()
			return fcderr.Wrapf(err, fcderr.IOError, "write record %s", rec.Path)
		}
	}

	if err := enc.Close(); err != nil {
		zw.Close()
		return fcderr.Wrap(err, fcderr.IOError, "write baseline")
	}
	if err := zw.Close(); err != nil {
		return fcderr.Wrap(err, fcderr.IOError, "flush baseline")
	}
	return nil
}

// maxPrealloc bounds the record slice allocated up front from the header.
const maxPrealloc = 4096

// Read decodes and validates a baseline without writing it anywhere.
func Read(ctx context.Context, r io.Reader) (Header, []store.Record, error) {
	zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return Header{}, nil, fcderr.Wrap(err, fcderr.InvalidInput, "not a baseline file")
	}
	defer zr.Close()

	dec := yaml.NewDecoder(zr)
	var header Header
	if err := dec.Decode(&header); err != nil {
		return Header{}, nil, fcderr.Wrap(err, fcderr.InvalidInput, "read baseline header")
	}
	if err := header.validate(); err != nil {
		return Header{}, nil, err
	}

	// count is untrusted until the records are actually there.
	recs := make([]store.Record, 0, min(header.Count, maxPrealloc))
	for {
		if err := ctx.Err(); err != nil {
			return Header{}, nil, err
		}
		var rec store.Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Header{}, nil, fcderr.Wrapf(err, fcderr.InvalidInput, "read record %d", len(recs)+1)
		}
		if err := validateRecord(rec); err != nil {
			return Header{}, nil, err
		}
		if len(recs) == header.Count {
			return Header{}, nil, fcderr.Newf(fcderr.InvalidInput,
				"baseline has more records than the %d its header promises", header.Count)
		}
		recs = append(recs, rec)
	}

	if len(recs) != header.Count {
		return Header{}, nil, fcderr.Newf(fcderr.InvalidInput,
			"baseline is truncated: header promises %d records, found %d", header.Count, len(recs))
	}
	return header, recs, nil
}

// Import reads a baseline and upserts every record in one transaction.
// Nothing is written unless the whole baseline is valid.
func Import(ctx context.Context, r io.Reader, w Writer) (int, error) {
	_, recs, err := Read(ctx, r)
	if err != nil {
		return 0, err
	}
	if err := w.PutMany(ctx, recs); err != nil {
		return 0, fcderr.Wrap(err, fcderr.IOError, "write records")
	}
	return len(recs), nil
}

func (h Header) validate() error {
	if h.Format != FormatName {
		return fcderr.Newf(fcderr.InvalidInput, "not a baseline file (format %q)", h.Format)
	}
	if h.Version != Version {
		return fcderr.Newf(fcderr.InvalidInput, "unsupported baseline version %d", h.Version)
	}
	if h.Algorithm != digest.Algorithm {
		return fcderr.Newf(fcderr.InvalidInput, "baseline uses %s digests, store uses %s", h.Algorithm, digest.Algorithm)
	}
	if h.Count < 0 {
		return fcderr.Newf(fcderr.InvalidInput, "negative record count %d", h.Count)
	}
	return nil
}

func validateRecord(rec store.Record) error {
	if !filepath.IsAbs(rec.Path) || filepath.Clean(rec.Path) != rec.Path {
		return fcderr.New(fcderr.PathAmbiguous, fmt.Sprintf("baseline path is not absolute and clean: %q", rec.Path)).
			WithDetail("path", rec.Path)
	}
	if !digest.Valid(rec.Digest) {
		return fcderr.Newf(fcderr.InvalidInput, "invalid digest for %s", rec.Path).WithDetail("path", rec.Path)
	}
	return nil
}
