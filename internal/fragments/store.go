// Package fragments partitions the text of one source file into disjoint
// ranges that can be rewritten independently.
package fragments

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/viant/afs"
)

// Fragment is a half-open byte range [Begin, End) of the original file.
// Only mutable fragments may have their Text replaced.
type Fragment struct {
	Begin   int
	End     int
	Mutable bool
	Text    string
}

// OverlapError reports a request that does not fit inside a single
// immutable fragment.
type OverlapError struct {
	File  string
	Begin int
	End   int
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("internal error: fragment [%d, %d) of %s is invalid or overlaps with another rewrite", e.Begin, e.End, e.File)
}

// Store holds the fragments of one file. The fragments always cover the
// whole original text without gaps.
type Store struct {
	path     string
	original string
	length   int
	frags    []*Fragment
}

// New creates a store from text already in memory.
func New(path, text string) *Store {
	return &Store{
		path:     path,
		original: text,
		length:   len(text),
		frags:    []*Fragment{{Begin: 0, End: len(text), Text: text}},
	}
}

// Load reads a file through afs and returns a store with one immutable
// fragment.
func Load(ctx context.Context, fs afs.Service, path string) (*Store, error) {
	data, err := fs.DownloadWithURL(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return New(path, string(data)), nil
}

// Path returns the location the store was loaded from.
func (s *Store) Path() string {
	return s.path
}

// Original returns the text the store was created with.
func (s *Store) Original() string {
	return s.original
}

// LineEnding returns "\r\n" when the original text uses CRLF line endings
// and "\n" otherwise.
func (s *Store) LineEnding() string {
	if strings.Contains(s.original, "\r\n") {
		return "\r\n"
	}
	return "\n"
}

// Len returns the length of the original text.
func (s *Store) Len() int {
	return s.length
}

// Create splits an immutable fragment into immutable-before, mutable and
// immutable-after parts and returns the mutable one. An empty range on a
// boundary between fragments goes before earlier insertions at the same
// offset, or after them when atEnd is set.
func (s *Store) Create(begin, end int, atEnd bool) (*Fragment, error) {
	i := s.find(begin, end, atEnd)
	if i < 0 {
		return nil, &OverlapError{File: s.path, Begin: begin, End: end}
	}
	frag := s.frags[i]
	before := &Fragment{Begin: frag.Begin, End: begin, Text: frag.Text[:begin-frag.Begin]}
	middle := &Fragment{Begin: begin, End: end, Mutable: true, Text: frag.Text[begin-frag.Begin : end-frag.Begin]}
	after := &Fragment{Begin: end, End: frag.End, Text: frag.Text[end-frag.Begin:]}

	replaced := make([]*Fragment, 0, len(s.frags)+2)
	replaced = append(replaced, s.frags[:i]...)
	replaced = append(replaced, before, middle, after)
	replaced = append(replaced, s.frags[i+1:]...)
	s.frags = replaced
	return middle, nil
}

// Substring returns original text from a range that is still immutable.
func (s *Store) Substring(begin, end int) (string, error) {
	i := s.find(begin, end, false)
	if i < 0 {
		return "", &OverlapError{File: s.path, Begin: begin, End: end}
	}
	frag := s.frags[i]
	return frag.Text[begin-frag.Begin : end-frag.Begin], nil
}

// SubstringFrom returns immutable text from begin to the end of the
// immutable fragment that contains it.
func (s *Store) SubstringFrom(begin int) (string, error) {
	i := s.find(begin, begin, false)
	if i < 0 {
		return "", &OverlapError{File: s.path, Begin: begin, End: begin}
	}
	frag := s.frags[i]
	return frag.Text[begin-frag.Begin:], nil
}

func (s *Store) find(begin, end int, last bool) int {
	if begin < 0 || end < begin || end > s.length {
		return -1
	}
	found := -1
	for i, frag := range s.frags {
		if frag.Mutable || begin < frag.Begin || end > frag.End {
			continue
		}
		if !last {
			return i
		}
		found = i
	}
	return found
}

// Generate joins all fragments back together.
func (s *Store) Generate() string {
	var b bytes.Buffer
	for _, frag := range s.frags {
		b.WriteString(frag.Text)
	}
	return b.String()
}

// Changed reports whether the generated text differs from the original.
func (s *Store) Changed() bool {
	return s.Generate() != s.original
}

// Fragments returns the current partition.
func (s *Store) Fragments() []Fragment {
	out := make([]Fragment, 0, len(s.frags))
	for _, frag := range s.frags {
		out = append(out, *frag)
	}
	return out
}

// Save uploads the generated text to the store's path when it changed.
// It reports whether anything was written.
func (s *Store) Save(ctx context.Context, fs afs.Service) (bool, error) {
	if !s.Changed() {
		return false, nil
	}
	if err := fs.Upload(ctx, s.path, 0644, strings.NewReader(s.Generate())); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return true, nil
}
