package model

// MetricRecord is a single record returned by a dataset query.
// Records are grouped by pagePath; the value lives under a dataset-specific
// aggregate key such as "total:sum" or "uniquePageviews:sum".
//
// Multiple records may share the same PagePath, both within one response
// and across enumeration queries.
type MetricRecord struct {
	// PagePath is the site-relative URL path, e.g. "/vat-rates".
	PagePath string `json:"pagePath"`

	// Field is the aggregate key the value was read from.
	Field string `json:"field"`

	// Value is nil when the aggregate key was absent or null.
	Value *float64 `json:"value"`
}

// NewMetricRecord creates a record with a present value.
func NewMetricRecord(path, field string, value float64) MetricRecord {
	return MetricRecord{PagePath: path, Field: field, Value: Float(value)}
}

// HasValue reports whether the record carries a non-zero value.
func (r MetricRecord) HasValue() bool {
	return r.Value != nil && *r.Value != 0
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v.
func Int(v int64) *int64 {
	return &v
}
