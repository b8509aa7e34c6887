// Package source reads the documents and cross-reference descriptions a
// viewer session works on. Inputs may be xz-compressed; compression is
// detected from the stream header, so the file name does not matter.
package source

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/xz"

	xerrors "github.com/FocuswithJustin/xrefview/core/errors"
	"github.com/FocuswithJustin/xrefview/internal/validation"
)

// reader wraps an opened file with optional decompression.
type reader struct {
	io.Reader
	file *os.File
}

func (r *reader) Close() error {
	return r.file.Close()
}

// Open opens path for reading, transparently decompressing xz content.
func Open(path string) (io.ReadCloser, error) {
	if err := validation.ValidatePath(path); err != nil {
		return nil, xerrors.NewIO("open", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.NewIO("open", path, err)
	}

	br := bufio.NewReader(f)
	header, err := br.Peek(validation.XZHeaderSize)
	if err != nil && err != io.EOF {
		f.Close()
		return nil, xerrors.NewIO("read", path, err)
	}

	var r io.Reader = br
	if validation.IsXZ(header) {
		xzr, err := xz.NewReader(br)
		if err != nil {
			f.Close()
			return nil, xerrors.NewIO("decompress", path, err)
		}
		r = xzr
	}
	return &reader{Reader: r, file: f}, nil
}

// ReadText reads the whole of path as text, up to validation.MaxFileSize
// decompressed bytes. Binary content is rejected.
func ReadText(path string) (string, error) {
	rc, err := Open(path)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, validation.MaxFileSize+1))
	if err != nil {
		return "", xerrors.NewIO("read", path, err)
	}
	if len(data) > validation.MaxFileSize {
		return "", xerrors.NewIO("read", path, validation.ErrFileTooLarge)
	}
	if err := validation.CheckText(data); err != nil {
		return "", xerrors.NewIO("read", path, err)
	}
	return string(data), nil
}

// ReadLines reads path and splits it into lines.
func ReadLines(path string) ([]string, error) {
	text, err := ReadText(path)
	if err != nil {
		return nil, err
	}
	return SplitLines(text), nil
}

// SplitLines splits text into lines without their terminators. A trailing
// newline does not start an extra line, so "a\nb\n" and "a\nb" both have two
// lines and "" has none.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
