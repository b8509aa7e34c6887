// Package validation provides input checks for the files a viewer session
// loads: path sanity, size limits and text-versus-binary detection.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Limits for loaded inputs (CWE-400).
const (
	// MaxFileSize is the maximum decompressed size of a document or description (64 MB).
	MaxFileSize = 64 << 20
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
	// SniffLength is how many leading bytes are inspected to classify content.
	SniffLength = 512
	// XZHeaderSize is the length of the xz stream magic.
	XZHeaderSize = 6
)

// Common validation errors.
var (
	ErrPathTooLong      = errors.New("path too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrFileTooLarge     = errors.New("file too large")
	ErrBinaryContent    = errors.New("content is not text")
)

// xzMagic is the stream header of an xz file.
var xzMagic = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}

// ValidatePath performs path validation without requiring a base directory.
// It checks length limits and invalid characters.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}

	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}

	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}

	return nil
}

// IsXZ reports whether header starts with the xz stream magic.
func IsXZ(header []byte) bool {
	return bytes.HasPrefix(header, xzMagic)
}

// IsLikelyText checks if the buffer contains likely text content.
// An empty buffer counts as text (an empty document).
func IsLikelyText(buf []byte) bool {
	if len(buf) == 0 {
		return true
	}

	// Null bytes are a strong indicator of binary content
	if bytes.IndexByte(buf, 0) != -1 {
		return false
	}

	printable := 0
	control := 0
	for _, b := range buf {
		if b >= 0x20 && b <= 0x7e || b == '\t' || b == '\n' || b == '\r' || b >= 0x80 {
			printable++
		} else {
			control++
		}
	}

	// More than 95% printable is considered text
	return float64(printable)/float64(printable+control) > 0.95
}

// CheckText returns ErrBinaryContent when the leading bytes of data do not
// look like text.
func CheckText(data []byte) error {
	head := data
	if len(head) > SniffLength {
		head = head[:SniffLength]
	}
	if !IsLikelyText(head) {
		return ErrBinaryContent
	}
	return nil
}
