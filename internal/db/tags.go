package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// tagList scans the tags column in either storage form: a Postgres TEXT[]
// literal ("{a,b}") or the JSON array text SQLite keeps ("[\"a\",\"b\"]").
type tagList []string

func (t *tagList) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*t = tagList{}
		return nil
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("unsupported tags column type %T", src)
	}

	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		*t = tagList{}
	case strings.HasPrefix(raw, "["):
		var tags []string
		if err := json.Unmarshal([]byte(raw), &tags); err != nil {
			return fmt.Errorf("decode tags: %w", err)
		}
		*t = tags
	default:
		var arr pq.StringArray
		if err := arr.Scan(raw); err != nil {
			return fmt.Errorf("decode tags: %w", err)
		}
		*t = tagList(arr)
	}
	if *t == nil {
		*t = tagList{}
	}
	return nil
}

// tagsArg encodes tags for a query parameter in the store's dialect.
func (s *Store) tagsArg(tags []string) (driver.Valuer, error) {
	if tags == nil {
		tags = []string{}
	}
	if s.dialect == Postgres {
		return pq.StringArray(tags), nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}
	return jsonText(data), nil
}

type jsonText []byte

func (j jsonText) Value() (driver.Value, error) {
	return string(j), nil
}
