package dto

import "time"

type UserInfoDTO struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SubmissionRequest is posted by the learner. Header and subheader default to
// the ones of the launch the token belongs to.
type SubmissionRequest struct {
	Token          string       `json:"token"`
	UserInfo       *UserInfoDTO `json:"user_info"`
	SubmissionInfo string       `json:"submission_info"`
	FileName       string       `json:"file_name"`
	FileContent    string       `json:"file_content"`
	Answer         string       `json:"answer"`
	Header         string       `json:"header"`
	Subheader      string       `json:"subheader"`
}

type SubmissionResponse struct {
	SubmissionID string    `json:"submission_id"`
	UserID       string    `json:"user_id"`
	Header       string    `json:"header"`
	Subheader    string    `json:"subheader"`
	FileName     string    `json:"file_name,omitempty"`
	Date         time.Time `json:"date"`
}
