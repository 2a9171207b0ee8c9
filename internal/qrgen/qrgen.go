// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

// Package qrgen renders QR codes for contact cards and arbitrary payloads.
package qrgen // import "github.com/bnrobert/gobro/internal/qrgen"

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/bnrobert/gobro/internal/fsutil"
)

// DefaultColor is the foreground used when none is given, the first color of
// the palette the original tooling ships.
const DefaultColor = "#0077CD"

// DefaultSize is the rendered image edge in pixels.
const DefaultSize = 512

// Contact describes one person for a vCard QR code.
type Contact struct {
	FirstName string
	LastName  string
	Org       string
	Title     string
	Email     string
	Tel       string
}

// VCard renders the contact as a vCard 3.0 payload with CRLF line ends.
// Empty optional fields are omitted. ORG keeps a trailing semicolon for the
// unit component.
func (c Contact) VCard() string {
	var b strings.Builder
	b.WriteString("BEGIN:VCARD\r\nVERSION:3.0\r\n")
	fmt.Fprintf(&b, "N:%s;%s\r\n", c.LastName, c.FirstName)
	if fn := strings.TrimSpace(c.FirstName + " " + c.LastName); fn != "" {
		fmt.Fprintf(&b, "FN:%s\r\n", fn)
	}
	if c.Org != "" {
		fmt.Fprintf(&b, "ORG:%s;\r\n", c.Org)
	}
	if c.Title != "" {
		fmt.Fprintf(&b, "TITLE:%s\r\n", c.Title)
	}
	if c.Email != "" {
		fmt.Fprintf(&b, "EMAIL:%s\r\n", c.Email)
	}
	if c.Tel != "" {
		fmt.Fprintf(&b, "TEL:%s\r\n", c.Tel)
	}
	b.WriteString("END:VCARD\r\n")
	return b.String()
}

// ParseHexColor parses an #RRGGBB value (leading # optional) into an opaque
// color.
func ParseHexColor(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("color %q is not #RRGGBB", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("color %q is not #RRGGBB", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}, nil
}

// WritePNG encodes payload at the highest error correction level and writes
// the image to path atomically. size is the edge length in pixels
// (DefaultSize when <= 0), fg the foreground color (DefaultColor when
// empty). The background stays white.
func WritePNG(payload, path string, size int, fg string) error {
	if payload == "" {
		return errors.New("empty QR payload")
	}
	if size <= 0 {
		size = DefaultSize
	}
	if fg == "" {
		fg = DefaultColor
	}
	col, err := ParseHexColor(fg)
	if err != nil {
		return err
	}

	q, err := qrcode.New(payload, qrcode.Highest)
	if err != nil {
		return fmt.Errorf("encode QR payload: %w", err)
	}
	q.ForegroundColor = col
	q.BackgroundColor = color.White

	png, err := q.PNG(size)
	if err != nil {
		return fmt.Errorf("render QR code: %w", err)
	}
	return fsutil.WriteAtomic(path, png, 0o644)
}
