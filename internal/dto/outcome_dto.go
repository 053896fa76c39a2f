package dto

type OutcomeResult struct {
	UserID string `json:"user_id"`
	Header string `json:"header"`
	Sent   int    `json:"sent"`
}

type DispatchResponse struct {
	Results []OutcomeResult `json:"results"`
	Sent    int             `json:"sent"`
}
