package model

import "time"

// UserInfo identifies the submitting learner.
type UserInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
}

// SubmissionDocument is stored once per submission in the submissions collection.
type SubmissionDocument struct {
	UserInfo       UserInfo     `json:"userInfo"`
	SubmissionInfo string       `json:"submissionInfo,omitempty"`
	FileName       string       `json:"fileName,omitempty"`
	FileContent    string       `json:"fileContent,omitempty"`
	Answer         string       `json:"answer,omitempty"`
	Header         string       `json:"header"`
	Subheader      string       `json:"subheader"`
	Edx            LaunchRecord `json:"edx"`
	Date           time.Time    `json:"date"`
}

// SubmissionRecord is the per-(header, subheader) entry of a UserDocument.
type SubmissionRecord struct {
	Edx          *LaunchRecord `json:"edx,omitempty"`
	FinalGrade   *float64      `json:"finalGrade,omitempty"`
	SubmissionID string        `json:"submissionId,omitempty"`
	FileName     string        `json:"fileName,omitempty"`
	SubmittedAt  *time.Time    `json:"submittedAt,omitempty"`
}

// ReadyForDispatch reports whether the record has a grade and somewhere to send it.
func (r *SubmissionRecord) ReadyForDispatch() bool {
	return r != nil && r.FinalGrade != nil && r.Edx.CanSendOutcome()
}
