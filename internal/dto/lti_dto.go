package dto

import "time"

// LaunchForm is the part of an LTI 1.1 basic launch the bridge reads.
type LaunchForm struct {
	OutcomeServiceURL string `form:"lis_outcome_service_url"`
	ResultSourcedID   string `form:"lis_result_sourcedid"`
	CustomHeader      string `form:"custom_header"`
	CustomSubheader   string `form:"custom_subheader"`
	UserID            string `form:"user_id"`
	ContextID         string `form:"context_id"`
	ResourceLinkID    string `form:"resource_link_id"`
	ConsumerKey       string `form:"oauth_consumer_key"`
}

type LaunchResponse struct {
	Token string `json:"token"`
}

// TokenInfoResponse describes the assignment a token was issued for.
type TokenInfoResponse struct {
	Token          string    `json:"token"`
	Header         string    `json:"header,omitempty"`
	Subheader      string    `json:"subheader,omitempty"`
	UserID         string    `json:"user_id,omitempty"`
	ContextID      string    `json:"context_id,omitempty"`
	ResourceLinkID string    `json:"resource_link_id,omitempty"`
	CanSendOutcome bool      `json:"can_send_outcome"`
	CreatedAt      time.Time `json:"created_at"`
}
