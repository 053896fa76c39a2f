package model

import "sort"

// UserDocument nests a user's submission records under header then subheader.
type UserDocument map[string]map[string]*SubmissionRecord

// Record returns the sub-record for (header, subheader), or nil.
func (d UserDocument) Record(header, subheader string) *SubmissionRecord {
	subs, ok := d[header]
	if !ok {
		return nil
	}
	return subs[subheader]
}

// Put stores rec under (header, subheader), creating the header as needed.
func (d UserDocument) Put(header, subheader string, rec *SubmissionRecord) {
	subs, ok := d[header]
	if !ok || subs == nil {
		subs = make(map[string]*SubmissionRecord)
		d[header] = subs
	}
	subs[subheader] = rec
}

// Headers returns the assignment headers in sorted order.
func (d UserDocument) Headers() []string {
	return sortedKeys(d)
}

// Subheaders returns the sub-assignments of header in sorted order.
func (d UserDocument) Subheaders(header string) []string {
	return sortedKeys(d[header])
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
