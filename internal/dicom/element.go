// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

package dicom

import (
	"fmt"
	"strings"

	godicom "github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// elementStrings returns the raw string values of t, or false when the
// element is absent or not string-valued.
func (f *File) elementStrings(t tag.Tag) ([]string, bool) {
	el, err := f.Dataset.FindElementByTag(t)
	if err != nil || el == nil {
		return nil, false
	}
	vals, ok := el.Value.GetValue().([]string)
	if !ok {
		return nil, false
	}
	return vals, true
}

// elementString returns the value of t as a single string. Multi-valued
// elements are joined with the DICOM value separator. An element with no
// values reads as absent.
func (f *File) elementString(t tag.Tag) (string, bool) {
	vals, ok := f.elementStrings(t)
	if !ok || len(vals) == 0 {
		return "", false
	}
	if len(vals) == 1 {
		return strings.TrimSpace(vals[0]), true
	}
	return strings.TrimSpace(strings.Join(vals, `\`)), true
}

// attribute returns the value of t for catalog purposes: UnknownValue when
// the element is absent or empty.
func (f *File) attribute(t tag.Tag) string {
	v, ok := f.elementString(t)
	if !ok || v == "" {
		return UnknownValue
	}
	return v
}

// setString replaces the value of t in place and reports whether the element
// was present. Absent elements stay absent; anonymization never invents
// attributes a file did not carry.
func (f *File) setString(t tag.Tag, value string) (bool, error) {
	for i, el := range f.Dataset.Elements {
		if el.Tag != t {
			continue
		}
		repl, err := godicom.NewElement(t, []string{value})
		if err != nil {
			return false, fmt.Errorf("rewrite element %v: %w", t, err)
		}
		f.Dataset.Elements[i] = repl
		return true, nil
	}
	return false, nil
}

// removeTags drops every element whose tag appears in tags and returns how
// many were removed.
func (f *File) removeTags(tags []tag.Tag) int {
	drop := make(map[tag.Tag]struct{}, len(tags))
	for _, t := range tags {
		drop[t] = struct{}{}
	}
	kept := f.Dataset.Elements[:0]
	removed := 0
	for _, el := range f.Dataset.Elements {
		if _, ok := drop[el.Tag]; ok {
			removed++
			continue
		}
		kept = append(kept, el)
	}
	f.Dataset.Elements = kept
	return removed
}
