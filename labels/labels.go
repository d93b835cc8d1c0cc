// Package labels produces the ordered class label list of a classifier from
// the places converted models usually get them: a JSON file (a list, or a
// framework's class-index mapping), a text file with one label per line, or
// the same text fetched over HTTP.
package labels

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Source produces an ordered list of class labels.
type Source interface {
	Labels(ctx context.Context) ([]string, error)
}

// Static is a fixed label list.
type Static []string

// Labels implements Source.
func (s Static) Labels(context.Context) ([]string, error) {
	return append([]string{}, s...), nil
}

// File reads labels from a file. Files ending in .json are parsed with
// ParseJSON, anything else with ParseText.
type File struct {
	Path string

	// Skip drops the first Skip labels, e.g. a "background" class the model
	// was not trained with.
	Skip int
}

// Labels implements Source.
func (f File) Labels(context.Context) ([]string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading labels")
	}
	var labels []string
	if strings.EqualFold(filepath.Ext(f.Path), ".json") {
		labels, err = ParseJSON(data)
	} else {
		labels, err = ParseText(data)
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "labels file %q", f.Path)
	}
	return skip(labels, f.Skip)
}

// FromSpec returns a URL source for http(s) URLs and a File source otherwise.
func FromSpec(spec string, skipFirst int) Source {
	if strings.HasPrefix(spec, "http://") || strings.HasPrefix(spec, "https://") {
		return &URL{URL: spec, Skip: skipFirst}
	}
	return File{Path: spec, Skip: skipFirst}
}

// Parse parses labels as JSON when the content looks like a JSON array or
// object, and as text otherwise.
func Parse(data []byte) ([]string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		return ParseJSON(trimmed)
	}
	return ParseText(data)
}

// ParseText parses one label per line. Trailing carriage returns are
// removed and a final empty line is ignored; other lines are kept as is, so
// blank labels in the middle of the file are preserved.
func ParseText(data []byte) ([]string, error) {
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return []string{}, nil
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines, nil
}

// ParseJSON parses labels from one of the JSON layouts label files come in:
//
//	["tench", "goldfish", ...]
//	{"0": "tench", "1": "goldfish", ...}
//	{"0": ["n01440764", "tench"], "1": ["n01443537", "goldfish"], ...}
//
// Objects are ordered by their integer keys, which must cover 0..N-1. For
// the class-index layout the last element of each entry is the label.
func ParseJSON(data []byte) ([]string, error) {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		if list == nil {
			return nil, errors.New("labels must be a JSON list of strings or an object keyed by class index, got null")
		}
		return list, nil
	}

	var index map[string]json.RawMessage
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, errors.Wrap(err, "labels must be a JSON list of strings or an object keyed by class index")
	}
	type entry struct {
		index int
		label string
	}
	entries := make([]entry, 0, len(index))
	for key, raw := range index {
		i, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return nil, errors.Errorf("class index %q is not an integer", key)
		}
		label, err := parseEntry(raw)
		if err != nil {
			return nil, errors.WithMessagef(err, "class %d", i)
		}
		entries = append(entries, entry{index: i, label: label})
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].index < entries[b].index })

	labels := make([]string, len(entries))
	for i, e := range entries {
		if e.index != i {
			return nil, errors.Errorf("class indices must cover 0..%d, missing %d", len(entries)-1, i)
		}
		labels[i] = e.label
	}
	return labels, nil
}

func parseEntry(raw json.RawMessage) (string, error) {
	var label string
	if err := json.Unmarshal(raw, &label); err == nil {
		return label, nil
	}
	var tuple []string
	if err := json.Unmarshal(raw, &tuple); err != nil || len(tuple) == 0 {
		return "", errors.New("label must be a string or a non-empty list of strings")
	}
	return tuple[len(tuple)-1], nil
}

func skip(labels []string, n int) ([]string, error) {
	if n < 0 || n > len(labels) {
		return nil, errors.Errorf("cannot skip %d of %d labels", n, len(labels))
	}
	return labels[n:], nil
}

// userAgent is sent with label downloads.
const userAgent = "coreml-relabel/0.1.0"

// URL fetches labels over HTTP. The body is parsed with Parse.
type URL struct {
	URL string

	// Skip drops the first Skip labels, e.g. the "background" entry of
	// ImageNetLabels.txt.
	Skip int

	// Client defaults to http.DefaultClient.
	Client *http.Client
}

// Labels implements Source.
func (u *URL) Labels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.URL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "fetching labels")
	}
	req.Header.Set("User-Agent", userAgent)

	client := u.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching labels from %s", u.URL)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetching labels from %s: HTTP %s", u.URL, resp.Status)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, errors.Wrapf(err, "reading labels from %s", u.URL)
	}
	labels, err := Parse(buf.Bytes())
	if err != nil {
		return nil, errors.WithMessagef(err, "labels from %s", u.URL)
	}
	return skip(labels, u.Skip)
}
