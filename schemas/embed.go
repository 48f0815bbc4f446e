// Package schemas embeds the JSON Schema documents that structured model output is checked against.
package schemas

import (
	"embed"
	"fmt"
)

//go:embed *.schema.json
var files embed.FS

// Schema file names
const (
	ArticleSearch = "article_search.schema.json"
	DeepDive      = "deep_dive.schema.json"
)

// Names lists every embedded schema.
var Names = []string{ArticleSearch, DeepDive}

// Load returns the raw schema document with the given file name.
func Load(name string) (string, error) {
	data, err := files.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("schema %s not found: %w", name, err)
	}
	return string(data), nil
}

// MustLoad is like Load but panics when the schema is missing.
func MustLoad(name string) string {
	s, err := Load(name)
	if err != nil {
		panic(err)
	}
	return s
}
