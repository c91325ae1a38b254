package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
)

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// decodeDocument decodes JSON, or YAML by way of its JSON form so the wire
// field names apply to both.
func decodeDocument(path string, raw []byte, v any) error {
	if isYAML(path) {
		var doc any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return usagef("%s: parse yaml: %v", path, err)
		}
		b, err := json.Marshal(doc)
		if err != nil {
			return usagef("%s: yaml is not representable as json: %v", path, err)
		}
		raw = b
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return usagef("%s: %v", path, err)
	}
	return nil
}

// parseMappings reads a JSON/YAML mapping document or tab separated lines of
// "id1 id2 mappingType".
func parseMappings(path string, raw []byte) ([]domain.IDMapping, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".tsv" || ext == ".txt" {
		var out []domain.IDMapping
		sc := bufio.NewScanner(bytes.NewReader(raw))
		line := 0
		for sc.Scan() {
			line++
			text := strings.TrimSpace(sc.Text())
			if text == "" || strings.HasPrefix(text, "#") {
				continue
			}
			parts := strings.Split(text, "\t")
			if len(parts) != 3 {
				return nil, usagef("%s:%d: expected 3 tab separated columns, got %d", path, line, len(parts))
			}
			out = append(out, domain.IDMapping{
				ID1:         strings.TrimSpace(parts[0]),
				ID2:         strings.TrimSpace(parts[1]),
				MappingType: strings.TrimSpace(parts[2]),
			})
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return out, nil
	}
	var doc struct {
		Mappings []domain.IDMapping `json:"mappings"`
	}
	if err := decodeDocument(path, raw, &doc); err != nil {
		return nil, err
	}
	return doc.Mappings, nil
}
