// Package upload implements the photo upload policy: which files are
// acceptable, and what storage key an accepted file is stored under.
package upload

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// keyPrefix is the media prefix all photo objects are stored under.
const keyPrefix = "photos/"

// FormatError is returned when an upload's content type is not accepted.
type FormatError struct {
	ContentType string
	Accepted    []string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unsupported photo format %q, accepted formats are: %s",
		e.ContentType, strings.Join(e.Accepted, ", "))
}

// SizeError is returned when an upload exceeds the configured byte ceiling.
type SizeError struct {
	Size int64
	Max  int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("photo of %d bytes exceeds the maximum upload size of %d bytes", e.Size, e.Max)
}

// Policy validates photo uploads against an accepted content-type set and a
// byte-size ceiling. The zero value rejects everything; build one with NewPolicy.
type Policy struct {
	accepted map[string]struct{}
	formats  []string
	maxBytes int64
}

// NewPolicy builds a Policy accepting the given MIME types up to maxBytes.
func NewPolicy(formats []string, maxBytes int64) Policy {
	accepted := make(map[string]struct{}, len(formats))
	kept := make([]string, 0, len(formats))
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		accepted[f] = struct{}{}
		kept = append(kept, f)
	}
	return Policy{accepted: accepted, formats: kept, maxBytes: maxBytes}
}

// Validate checks a declared content type and byte size against the policy.
// The format is checked before the size, and the check is pure: no storage
// is touched. Callers skip Validate entirely when no file was uploaded.
func (p Policy) Validate(contentType string, size int64) error {
	if _, ok := p.accepted[strings.ToLower(contentType)]; !ok {
		return &FormatError{ContentType: contentType, Accepted: p.formats}
	}
	if size > p.maxBytes {
		return &SizeError{Size: size, Max: p.maxBytes}
	}
	return nil
}

// Key derives a fresh storage key for an uploaded file. The key is a random
// token under the media prefix; only the original file's extension survives,
// so client-controlled names never reach the store and two uploads never
// collide. Naming does not depend on the owning record having an ID yet.
func Key(filename string) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	ext := strings.ToLower(filepath.Ext(filename))
	return keyPrefix + token + ext
}
