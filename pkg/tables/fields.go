package tables

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Fields is the untyped field set of a record. It never contains "id".
type Fields map[string]any

// RecordData is the wire shape of one record.
type RecordData[F any] struct {
	ID     string `json:"id"               yaml:"id"`
	Fields F      `json:"fields"           yaml:"fields"`
}

// DeletedRecord is the marker returned by destroy operations.
type DeletedRecord struct {
	ID      string `json:"id"      yaml:"id"`
	Deleted bool   `json:"deleted" yaml:"deleted"`
}

// Page is one validated page of a list response. An empty Offset means the
// store sent no continuation token.
type Page[F any] struct {
	Records []RecordData[F]
	Offset  string
}

// convertFields narrows a decoded JSON value into F without checking its shape.
func convertFields[F any](input any) (F, error) {
	var out F

	if value, ok := input.(F); ok {
		return value, nil
	}

	if object, ok := input.(map[string]any); ok {
		if fields, ok := any(&out).(*Fields); ok {
			*fields = Fields(object)

			return out, nil
		}
	}

	data, err := json.Marshal(input)
	if err != nil {
		return out, fmt.Errorf("encoding fields: %w", err)
	}

	err = json.Unmarshal(data, &out)
	if err != nil {
		return out, fmt.Errorf("decoding fields into %T: %w", out, err)
	}

	return out, nil
}
