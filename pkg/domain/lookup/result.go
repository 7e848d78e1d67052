package lookup

// Field is a single attribute kept from an upstream response.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Record is one subject returned by an upstream source. Field order follows
// the order of appearance in the upstream payload.
type Record struct {
	Fields []Field `json:"fields"`
}

// Result is the normalized shape every upstream response is reduced to
// before it reaches the cache or the orchestrator, regardless of whether the
// source answered with a flat object, a bare array, or a wrapped collection.
type Result struct {
	Number  string   `json:"number"`
	Records []Record `json:"records"`
}

// Empty reports whether the result carries no usable data.
func (r *Result) Empty() bool {
	if r == nil {
		return true
	}
	for _, rec := range r.Records {
		if len(rec.Fields) > 0 {
			return false
		}
	}
	return true
}
