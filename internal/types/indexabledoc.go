package types

import (
	"time"
)

const (
	FieldCollection = "collection"
	FieldItemID     = "item_id"
	FieldIndexedAt  = "indexed_at"
)

// IndexableDocument is a record as it is written to the search index.
type IndexableDocument struct {
	Id   string
	Data map[string]any
}

// DocumentID is the index-wide identifier of a record: "<collection>_<id>".
func DocumentID(collection, id string) string {
	return collection + "_" + id
}

// GetIndexableDoc builds the full document body for a record. The payload is
// copied, and the metadata fields always win over payload fields with the
// same name. indexedAt is stamped on every call.
func GetIndexableDoc(collection string, itemID any, payload Record, indexedAt time.Time) IndexableDocument {
	data := make(map[string]any, len(payload)+3)
	for k, v := range payload {
		data[k] = v
	}
	data[FieldCollection] = collection
	data[FieldItemID] = itemID
	data[FieldIndexedAt] = indexedAt.UTC().Format(time.RFC3339Nano)

	return IndexableDocument{
		Id:   DocumentID(collection, FormatID(itemID)),
		Data: data,
	}
}
