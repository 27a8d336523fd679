// Package preview renders HTML source the way a hidden document frame would:
// the source is written into a detached document and the root element is
// serialized back.
package preview

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"golang.org/x/net/html"
)

var (
	ErrClosed   = errors.New("preview: frame closed")
	ErrTooLarge = errors.New("preview: document too large")
	ErrEmpty    = errors.New("preview: nothing written")
)

// live counts frames that have been opened and not yet closed.
var live atomic.Int64

// Live reports the number of open frames.
func Live() int64 {
	return live.Load()
}

// Frame is a detached, invisible rendering context. A Frame must be closed.
type Frame struct {
	maxBytes int
	doc      *html.Node
	closed   bool
}

// Option configures a Frame.
type Option func(*Frame)

// WithMaxBytes rejects documents larger than n bytes. Zero means no limit.
func WithMaxBytes(n int) Option {
	return func(f *Frame) {
		f.maxBytes = n
	}
}

// Open acquires a new frame.
func Open(opts ...Option) *Frame {
	f := &Frame{}
	for _, opt := range opts {
		opt(f)
	}
	live.Add(1)
	return f
}

// Write replaces the frame's document with src parsed as a full document.
func (f *Frame) Write(src string) error {
	if f.closed {
		return ErrClosed
	}
	if f.maxBytes > 0 && len(src) > f.maxBytes {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, len(src), f.maxBytes)
	}
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return fmt.Errorf("parse document: %w", err)
	}
	f.doc = doc
	return nil
}

// Markup serializes the document's root element, including its own tag.
func (f *Frame) Markup() (string, error) {
	if f.closed {
		return "", ErrClosed
	}
	if f.doc == nil {
		return "", ErrEmpty
	}
	root := documentElement(f.doc)
	if root == nil {
		return "", ErrEmpty
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return "", fmt.Errorf("render document: %w", err)
	}
	return buf.String(), nil
}

// Close disposes of the frame. It is safe to call more than once.
func (f *Frame) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	f.doc = nil
	live.Add(-1)
	return nil
}

// Render writes src into a fresh frame and returns the serialized root
// element. The frame is released on every path.
func Render(src string, opts ...Option) (string, error) {
	f := Open(opts...)
	defer f.Close()

	if err := f.Write(src); err != nil {
		return "", err
	}
	return f.Markup()
}

func documentElement(doc *html.Node) *html.Node {
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == html.ElementNode {
			return n
		}
	}
	return nil
}
