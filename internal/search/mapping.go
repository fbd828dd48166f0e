package search

import "encoding/json"

const (
	DefaultShards   = 1
	DefaultReplicas = 0
)

// IndexDefinition returns the create-index body: fixed shard and replica
// counts plus exact-match keys and the sync timestamp. Every other field is
// left to dynamic mapping.
func IndexDefinition() []byte {
	body, _ := json.Marshal(map[string]any{
		"settings": map[string]any{
			"index": map[string]any{
				"number_of_shards":   DefaultShards,
				"number_of_replicas": DefaultReplicas,
			},
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"collection": map[string]string{"type": "keyword"},
				"item_id":    map[string]string{"type": "keyword"},
				"indexed_at": map[string]string{"type": "date"},
			},
		},
	})
	return body
}
