// Package language holds the closed set of languages the editor shell knows
// about. Only JavaScript, HTML and CSS can be run; the others are listed so
// the selector can offer them and the dispatcher can decline them.
package language

import (
	"path/filepath"
	"strings"
)

// ID identifies a language. The set of values is closed: use the constants.
type ID string

const (
	JavaScript ID = "javascript"
	HTML       ID = "html"
	CSS        ID = "css"
	Python     ID = "python"
	Java       ID = "java"
	R          ID = "r"
)

// Descriptor is an immutable entry of the language list.
type Descriptor struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

var descriptors = []Descriptor{
	{ID: JavaScript, Name: "JavaScript"},
	{ID: HTML, Name: "HTML"},
	{ID: CSS, Name: "CSS"},
	{ID: Python, Name: "Python"},
	{ID: Java, Name: "Java"},
	{ID: R, Name: "R"},
}

var aliases = map[string]ID{
	"js": JavaScript,
	"py": Python,
}

// All returns the selectable languages in display order.
func All() []Descriptor {
	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors)
	return out
}

// Default returns the first entry of the list.
func Default() Descriptor {
	return descriptors[0]
}

// Find looks up a descriptor by id or alias.
func Find(id string) (Descriptor, bool) {
	key := strings.ToLower(strings.TrimSpace(id))
	if alias, ok := aliases[key]; ok {
		key = string(alias)
	}
	for _, d := range descriptors {
		if string(d.ID) == key {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Lookup is like Find but falls back to Default for unknown ids.
func Lookup(id string) Descriptor {
	if d, ok := Find(id); ok {
		return d
	}
	return Default()
}

// Detect picks a language from a file extension.
func Detect(filename string) (Descriptor, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".js", ".mjs", ".cjs":
		return Find(string(JavaScript))
	case ".html", ".htm":
		return Find(string(HTML))
	case ".css":
		return Find(string(CSS))
	case ".py":
		return Find(string(Python))
	case ".java":
		return Find(string(Java))
	case ".r":
		return Find(string(R))
	}
	return Descriptor{}, false
}

// Runnable reports whether the shell can execute code in d.
func (d Descriptor) Runnable() bool {
	switch d.ID {
	case JavaScript, HTML, CSS:
		return true
	}
	return false
}

// Syntax returns the lexer name used to highlight source in this language.
func (d Descriptor) Syntax() string {
	if d.ID == "" {
		return "plaintext"
	}
	return string(d.ID)
}

func (d Descriptor) String() string {
	return d.Name
}
