// Package batch implements batch identifier generation and file name
// normalization for the ingestion workflow. Batch identifiers are the
// literal prefix "BATCH" followed by a six digit zero padded sequence.
package batch

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

const (
	prefix      = "BATCH"
	digitCount  = 6
	maxSequence = 999999
)

// ErrMalformedBatchID reports a stored identifier whose trailing six
// characters are not digits. Callers fall back to First and log a warning.
var ErrMalformedBatchID = errors.New("malformed batch identifier")

// ErrSequenceExhausted reports that the six digit sequence space is spent.
var ErrSequenceExhausted = errors.New("batch sequence exhausted")

var idPattern = regexp.MustCompile(`BATCH\d{6}`)

// First returns the identifier that starts a client's sequence.
func First() string {
	return fmt.Sprintf("%s%0*d", prefix, digitCount, 1)
}

// Next increments a batch identifier. The numeric suffix is the last six
// characters of the input; everything before it is replaced with the
// canonical prefix, so a double increment from any well formed input raises
// the sequence by exactly two.
func Next(id string) (string, error) {
	if len(id) < digitCount {
		return "", fmt.Errorf("%w: %q", ErrMalformedBatchID, id)
	}
	suffix := id[len(id)-digitCount:]
	sequence, err := strconv.Atoi(suffix)
	if err != nil || sequence < 0 {
		return "", fmt.Errorf("%w: %q", ErrMalformedBatchID, id)
	}
	if sequence >= maxSequence {
		return "", fmt.Errorf("%w: %q", ErrSequenceExhausted, id)
	}
	return fmt.Sprintf("%s%0*d", prefix, digitCount, sequence+1), nil
}

// Extract returns the first batch identifier token embedded in a name, or
// the empty string when none is present.
func Extract(name string) string {
	return idPattern.FindString(name)
}

// Normalize produces the canonical logical name for a physical file: lower
// case, trimmed, extension removed, spaces and hyphens collapsed to
// underscores. Matching against ingestion configs always goes through this.
func Normalize(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if ext := filepath.Ext(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}
	base = strings.ToLower(base)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.ReplaceAll(base, "-", "_")
	return base
}

// StripSuffix removes a trailing _BATCH###### token from a normalized name.
// The comparison ignores case because Normalize lower cases the whole name.
// Names without the token are returned unchanged.
func StripSuffix(name string) string {
	const tokenLen = 1 + len(prefix) + digitCount
	if len(name) < tokenLen {
		return name
	}
	tail := name[len(name)-tokenLen:]
	if !strings.EqualFold(tail[:1+len(prefix)], "_"+prefix) {
		return name
	}
	if _, err := strconv.Atoi(tail[1+len(prefix):]); err != nil {
		return name
	}
	return name[:len(name)-tokenLen]
}

// SuffixedName renames a physical file for a batch run: the batch identifier
// is appended to the stem before the extension.
func SuffixedName(fileName, batchID string) string {
	ext := filepath.Ext(fileName)
	stem := fileName[:len(fileName)-len(ext)]
	return stem + "_" + batchID + ext
}
