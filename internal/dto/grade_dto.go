package dto

import "github.com/goccy/go-json"

// Grade values are numbers or numeric strings. They stay untyped here so the
// grade service can reject anything else before the store is touched.

// BatchGradesRequest is {users:{userId:{header:{subheader:grade}}}}.
type BatchGradesRequest struct {
	Users map[string]map[string]map[string]any `json:"users"`
}

// UserGradesRequest is {grades:{header:{subheader:grade}}} or the bare
// {header:{subheader:grade}}.
type UserGradesRequest struct {
	Grades map[string]map[string]any `json:"grades"`
}

// UnmarshalJSON reads a body whose only key is "grades" as the wrapped form
// when its value nests one level deeper than a bare assignment would. Anything
// else is the bare form.
func (r *UserGradesRequest) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	r.Grades = nil
	if len(fields) == 0 {
		return nil
	}

	if raw, ok := fields["grades"]; ok && len(fields) == 1 {
		var wrapped map[string]map[string]any
		if err := json.Unmarshal(raw, &wrapped); err == nil {
			r.Grades = wrapped
			return nil
		}
	}

	var bare map[string]map[string]any
	if err := json.Unmarshal(data, &bare); err != nil {
		return err
	}
	r.Grades = bare
	return nil
}

// AssignmentGradesRequest is {grades:{subheader:grade}}.
type AssignmentGradesRequest struct {
	Grades map[string]any `json:"grades"`
}

type GradeUpdateResponse struct {
	UpdatedUsers []string `json:"updated_users"`
	Grades       int      `json:"grades"`
}
