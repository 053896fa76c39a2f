// Package lti implements the LTI 1.1 pieces the bridge needs: signed Basic
// Outcomes replaceResult calls and launch signature verification.
package lti

import (
	"bytes"
	"context"
	"crypto/sha1" //nolint:gosec // oauth_body_hash is SHA-1 by definition
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

const (
	poxNamespace       = "http://www.imsglobal.org/services/ltiv1p1/xsd/imsoms_v1p0"
	codeMajorSuccess   = "success"
	maxResponseBytes   = 1 << 20
	defaultTimeout     = 10 * time.Second
	defaultMaxFailures = 5
	defaultOpenTimeout = 30 * time.Second
)

var (
	// ErrInvalidScore is returned for scores outside [0, 1].
	ErrInvalidScore = errors.New("lti: score must be between 0 and 1")
	// ErrOutcomeRejected is returned when the platform answers but does not report success.
	ErrOutcomeRejected = errors.New("lti: outcome rejected by platform")
)

// OutcomeSender posts a grade back to the course platform.
type OutcomeSender interface {
	SendReplaceResult(ctx context.Context, req ReplaceResultRequest) error
}

// ReplaceResultRequest holds everything needed for one replaceResult call.
type ReplaceResultRequest struct {
	ConsumerKey    string
	ConsumerSecret string
	ServiceURL     string
	SourcedID      string
	Score          float64
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.httpClient.Timeout = d
		}
	}
}

// WithBreaker configures how many consecutive failures open the breaker and
// how long it stays open.
func WithBreaker(maxFailures uint32, openTimeout time.Duration) Option {
	return func(cl *Client) {
		cl.maxFailures = maxFailures
		cl.openTimeout = openTimeout
	}
}

// Client sends signed replaceResult requests through a circuit breaker.
type Client struct {
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker[[]byte]
	maxFailures uint32
	openTimeout time.Duration
	now         func() time.Time
	nonce       func() string
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: defaultTimeout},
		maxFailures: defaultMaxFailures,
		openTimeout: defaultOpenTimeout,
		now:         time.Now,
		nonce:       func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
	for _, opt := range opts {
		opt(c)
	}

	maxFailures := c.maxFailures
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "lti-outcome",
		MaxRequests: 1,
		Timeout:     c.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return maxFailures > 0 && counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Outcome circuit breaker changed state")
		},
	})
	return c
}

type poxRequestEnvelope struct {
	XMLName           xml.Name      `xml:"imsx_POXEnvelopeRequest"`
	Xmlns             string        `xml:"xmlns,attr"`
	Version           string        `xml:"imsx_POXHeader>imsx_POXRequestHeaderInfo>imsx_version"`
	MessageIdentifier string        `xml:"imsx_POXHeader>imsx_POXRequestHeaderInfo>imsx_messageIdentifier"`
	ReplaceResult     replaceResult `xml:"imsx_POXBody>replaceResultRequest"`
}

type replaceResult struct {
	SourcedID  string `xml:"resultRecord>sourcedGUID>sourcedId"`
	Language   string `xml:"resultRecord>result>resultScore>language"`
	TextString string `xml:"resultRecord>result>resultScore>textString"`
}

type poxResponseEnvelope struct {
	XMLName     xml.Name `xml:"imsx_POXEnvelopeResponse"`
	CodeMajor   string   `xml:"imsx_POXHeader>imsx_POXResponseHeaderInfo>imsx_statusInfo>imsx_codeMajor"`
	Description string   `xml:"imsx_POXHeader>imsx_POXResponseHeaderInfo>imsx_statusInfo>imsx_description"`
}

// buildReplaceResult renders the POX body for one score.
func buildReplaceResult(messageID, sourcedID string, score float64) ([]byte, error) {
	env := poxRequestEnvelope{
		Xmlns:             poxNamespace,
		Version:           "V1.0",
		MessageIdentifier: messageID,
		ReplaceResult: replaceResult{
			SourcedID:  sourcedID,
			Language:   "en",
			TextString: strconv.FormatFloat(score, 'f', -1, 64),
		},
	}
	body, err := xml.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal replaceResult: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// SendReplaceResult posts a signed replaceResult request. Transport errors and
// non-2xx answers count against the breaker; a well-formed failure answer does not.
func (c *Client) SendReplaceResult(ctx context.Context, req ReplaceResultRequest) error {
	if math.IsNaN(req.Score) || req.Score < 0 || req.Score > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidScore, req.Score)
	}
	if req.ServiceURL == "" || req.SourcedID == "" {
		return errors.New("lti: outcome service url and sourced id are required")
	}

	body, err := buildReplaceResult(uuid.NewString(), req.SourcedID, req.Score)
	if err != nil {
		return err
	}

	respBody, err := c.breaker.Execute(func() ([]byte, error) {
		return c.post(ctx, req, body)
	})
	if err != nil {
		return err
	}

	var resp poxResponseEnvelope
	if err := xml.Unmarshal(respBody, &resp); err != nil {
		return fmt.Errorf("%w: unreadable response: %v", ErrOutcomeRejected, err)
	}
	if resp.CodeMajor != codeMajorSuccess {
		return fmt.Errorf("%w: %s: %s", ErrOutcomeRejected, resp.CodeMajor, resp.Description)
	}
	return nil
}

func (c *Client) post(ctx context.Context, req ReplaceResultRequest, body []byte) ([]byte, error) {
	authorization, err := c.signBody(http.MethodPost, req.ServiceURL, req.ConsumerKey, req.ConsumerSecret, body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.ServiceURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build outcome request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/xml")
	httpReq.Header.Set("Authorization", authorization)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("post outcome: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read outcome response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("outcome service answered %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return respBody, nil
}

// signBody produces the Authorization header for an OAuth body-signed request.
func (c *Client) signBody(method, rawURL, consumerKey, consumerSecret string, body []byte) (string, error) {
	sum := sha1.Sum(body) //nolint:gosec
	params := url.Values{
		"oauth_body_hash":        {base64.StdEncoding.EncodeToString(sum[:])},
		"oauth_consumer_key":     {consumerKey},
		"oauth_nonce":            {c.nonce()},
		"oauth_signature_method": {signatureMethodHMACSHA1},
		"oauth_timestamp":        {strconv.FormatInt(c.now().Unix(), 10)},
		"oauth_version":          {oauthVersion},
	}
	signature, err := Signature(method, rawURL, params, consumerSecret)
	if err != nil {
		return "", err
	}
	params.Set("oauth_signature", signature)
	return authorizationHeader(params), nil
}
