package report

import "encoding/json"

// FormatJSON returns the report as indented JSON bytes.
func FormatJSON(r *Report) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FormatJSONAll returns several reports as one indented JSON array.
func FormatJSONAll(reports []*Report) ([]byte, error) {
	if reports == nil {
		reports = []*Report{}
	}
	return json.MarshalIndent(reports, "", "  ")
}
