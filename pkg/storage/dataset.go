package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"skytally/pkg/bluesky"
	errs "skytally/pkg/errors"
)

// Dataset is a list of records loaded from a local file
type Dataset[T any] struct {
	Path  string
	Items []T
	// Malformed holds the indexes of entries that could not be decoded
	Malformed []int
}

// Load reads records from a JSON file. The file may hold a plain array of
// records, a saved API page object with the records under itemsField, or
// one JSON record per line.
func Load[T any](path, itemsField string) (*Dataset[T], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	raw, err := splitRecords(data, itemsField)
	if err != nil {
		return nil, &errs.Error{
			Kind:    errs.KindParsing,
			Message: fmt.Sprintf("unrecognised dataset layout in %s", filepath.Base(path)),
			Err:     err,
		}
	}

	ds := &Dataset[T]{Path: path, Items: make([]T, 0, len(raw))}
	for i, item := range raw {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			ds.Malformed = append(ds.Malformed, i)
			continue
		}
		ds.Items = append(ds.Items, v)
	}

	return ds, nil
}

// splitRecords returns the raw records of a dataset file
func splitRecords(data []byte, itemsField string) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil

	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err == nil {
			if field, ok := obj[itemsField]; ok {
				var items []json.RawMessage
				if err := json.Unmarshal(field, &items); err != nil {
					return nil, fmt.Errorf("field %q: %w", itemsField, err)
				}
				return items, nil
			}
		}
		return splitLines(trimmed)
	}

	return nil, fmt.Errorf("expected a JSON array or object, found %q", trimmed[0])
}

// splitLines treats the data as JSON Lines
func splitLines(data []byte) ([]json.RawMessage, error) {
	var items []json.RawMessage
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		items = append(items, json.RawMessage(line))
	}
	return items, nil
}

// LoadPosts reads search results (a "posts" page or an array of posts)
func LoadPosts(path string) (*Dataset[bluesky.PostView], error) {
	return Load[bluesky.PostView](path, bluesky.FieldPosts)
}

// LoadFeed reads author feed entries (a "feed" page or an array of entries)
func LoadFeed(path string) (*Dataset[bluesky.FeedViewPost], error) {
	return Load[bluesky.FeedViewPost](path, bluesky.FieldFeed)
}

// LoadLikes reads likes (a "likes" page or an array of likes)
func LoadLikes(path string) (*Dataset[bluesky.Like], error) {
	return Load[bluesky.Like](path, bluesky.FieldLikes)
}
