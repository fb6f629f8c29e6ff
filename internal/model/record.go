package model

// Record is one stored row keyed by column name. Contained relations are attached
// under the relation name, relation counts under "<relation>_count".
type Record map[string]any

// Get returns the value of key, nil when absent.
func (r Record) Get(key string) any {
	if r == nil {
		return nil
	}
	return r[key]
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
