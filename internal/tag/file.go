// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package tag

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/samber/oops"
)

var gzipMagic = []byte{0x1f, 0x8b}

// WriteTo writes the gzip-compressed encoding of t to w.
func WriteTo(w io.Writer, t Tag) error {
	data, err := Encode(t)
	if err != nil {
		return err
	}
	zw := gzip.NewWriter(w)
	if _, err := zw.Write(data); err != nil {
		_ = zw.Close()
		return oops.In("tag").With("operation", "compress").Wrap(err)
	}
	if err := zw.Close(); err != nil {
		return oops.In("tag").With("operation", "compress").Wrap(err)
	}
	return nil
}

// ReadFrom reads one tag from r. Gzip-compressed and raw encodings are both
// accepted.
func ReadFrom(r io.Reader) (Tag, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, oops.In("tag").With("operation", "read").Wrap(err)
	}
	if bytes.HasPrefix(data, gzipMagic) {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, oops.In("tag").Code(CodeParse).With("operation", "decompress").Wrap(err)
		}
		defer zr.Close() //nolint:errcheck // read-only stream
		if data, err = io.ReadAll(zr); err != nil {
			return nil, oops.In("tag").Code(CodeParse).With("operation", "decompress").Wrap(err)
		}
	}
	return Decode(data)
}

// WriteFile atomically writes t, gzip-compressed, to path.
func WriteFile(path string, t Tag) error {
	var buf bytes.Buffer
	if err := WriteTo(&buf, t); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return oops.In("tag").With("path", path).Wrap(err)
	}
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return oops.In("tag").With("path", path).Wrap(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return oops.In("tag").With("path", path).Wrap(err)
	}
	return nil
}

// ReadFile reads a tag file written by WriteFile or a raw encoding.
func ReadFile(path string) (Tag, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, oops.In("tag").With("path", path).Wrap(err)
	}
	defer f.Close() //nolint:errcheck // read-only file
	t, err := ReadFrom(f)
	if err != nil {
		return nil, oops.In("tag").With("path", path).Wrap(err)
	}
	return t, nil
}
