package types

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
)

// Record is a row of a host collection as delivered in a notification.
type Record map[string]any

// ID returns the canonical string form of the record identifier stored
// under field. It reports false when the field is absent, null or empty.
func (r Record) ID(field string) (string, bool) {
	v, ok := r[field]
	if !ok || v == nil {
		return "", false
	}
	id := FormatID(v)
	return id, id != ""
}

func (r Record) Clone() Record {
	if r == nil {
		return Record{}
	}
	return maps.Clone(r)
}

// FormatID renders a scalar identifier without float noise: 42, not 42.000000.
func FormatID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case json.Number:
		return id.String()
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(id), 'f', -1, 32)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case int32:
		return strconv.FormatInt(int64(id), 10)
	case uint64:
		return strconv.FormatUint(id, 10)
	case uint32:
		return strconv.FormatUint(uint64(id), 10)
	default:
		return fmt.Sprintf("%v", id)
	}
}
