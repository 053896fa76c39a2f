package model

import "time"

// LaunchRequest is the subset of an LTI launch kept for the grade send-back.
type LaunchRequest struct {
	OutcomeServiceURL string `json:"outcome_service_url"`
	ResultSourcedID   string `json:"result_sourced_id"`
	CustomHeader      string `json:"custom_header,omitempty"`
	CustomSubheader   string `json:"custom_subheader,omitempty"`
	UserID            string `json:"user_id,omitempty"`
	ContextID         string `json:"context_id,omitempty"`
	ResourceLinkID    string `json:"resource_link_id,omitempty"`
	ConsumerKey       string `json:"consumer_key,omitempty"`
	Protocol          string `json:"protocol,omitempty"` // "http" or "https", as seen by the launch
	Host              string `json:"host,omitempty"`
}

// LaunchRecord is created once per LTI launch and never modified.
type LaunchRecord struct {
	Token     string        `json:"token"`
	Request   LaunchRequest `json:"request"`
	CreatedAt time.Time     `json:"createdAt"`
}

// CanSendOutcome reports whether the launch carries what the outcome service needs.
func (l *LaunchRecord) CanSendOutcome() bool {
	return l != nil && l.Request.OutcomeServiceURL != "" && l.Request.ResultSourcedID != ""
}
