package pkgmeta

// Record is a parsed package metadata header block: an ordered mapping from
// field name to the ordered values seen for it. Field casing is preserved
// and repeated fields (e.g. Classifier) keep their multiplicity.
type Record struct {
	keys   []string
	values map[string][]string
}

// NewRecord creates an empty record
func NewRecord() *Record {
	return &Record{values: make(map[string][]string)}
}

// Add appends a value for the given field, preserving insertion order
func (r *Record) Add(key, value string) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = append(r.values[key], value)
}

// Get returns the values seen for a field, in source order
func (r *Record) Get(key string) []string {
	return r.values[key]
}

// Keys returns the field names in order of first appearance
func (r *Record) Keys() []string {
	return r.keys
}

// Len returns the number of distinct field names
func (r *Record) Len() int {
	return len(r.keys)
}
