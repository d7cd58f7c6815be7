// Package partition maintains the topical partition file that assigns every
// sky imageset a tag, and emits the records of one tag as a document.
//
// The file holds one line per imageset URL:
//
//	<url>  <tag>  <description>
//
// Fields are separated by runs of whitespace; the description may contain
// spaces and may be absent.
package partition

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/aidanlsb/skycat/internal/atomicfile"
	"github.com/aidanlsb/skycat/internal/model"
)

// Unassigned is the tag given to imagesets new to the file.
const Unassigned = "UNASSIGNED"

// Entry is one line of a partition file.
type Entry struct {
	URL         string
	Tag         string
	Description string
}

// File is a parsed partition file keyed by URL.
type File struct {
	Path    string
	Entries map[string]Entry
}

// Read parses the partition file at path. A missing file reads as empty.
func Read(fs billy.Filesystem, path string) (*File, error) {
	f := &File{Path: path, Entries: make(map[string]Entry)}
	data, err := util.ReadFile(fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read partition file: %w", err)
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		e, err := parseLine(line)
		if err != nil {
			return nil, &model.ParseError{Path: fmt.Sprintf("%s:%d", path, lineNo), Err: err}
		}
		f.Entries[e.URL] = e
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read partition file: %w", err)
	}
	return f, nil
}

func parseLine(line string) (Entry, error) {
	url, rest := cut(line)
	tag, desc := cut(rest)
	if tag == "" {
		return Entry{}, fmt.Errorf("line has no tag: %q", line)
	}
	return Entry{URL: url, Tag: tag, Description: desc}, nil
}

// cut splits off the first whitespace-delimited field.
func cut(s string) (field, rest string) {
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

// URLs returns the URLs filed under tag, sorted.
func (f *File) URLs(tag string) []string {
	var urls []string
	for _, e := range f.Entries {
		if e.Tag == tag {
			urls = append(urls, e.URL)
		}
	}
	sort.Strings(urls)
	return urls
}

// Bytes renders the file in canonical form: one line per entry, sorted by URL.
func (f *File) Bytes() []byte {
	urls := make([]string, 0, len(f.Entries))
	for u := range f.Entries {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	var buf bytes.Buffer
	for _, u := range urls {
		e := f.Entries[u]
		if e.Description != "" {
			fmt.Fprintf(&buf, "%s  %s  %s\n", e.URL, e.Tag, e.Description)
		} else {
			fmt.Fprintf(&buf, "%s  %s\n", e.URL, e.Tag)
		}
	}
	return buf.Bytes()
}

// Write saves the file in canonical form.
func (f *File) Write(fs billy.Filesystem) error {
	return atomicfile.WriteFile(fs, f.Path, f.Bytes())
}
