package lti

import (
	"crypto/hmac"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// MaxTimestampSkew bounds how far a launch oauth_timestamp may drift from the server clock.
const MaxTimestampSkew = 10 * time.Minute

var (
	ErrUnknownConsumer    = errors.New("lti: unknown consumer key")
	ErrUnsupportedMethod  = errors.New("lti: unsupported signature method")
	ErrStaleTimestamp     = errors.New("lti: oauth timestamp outside allowed window")
	ErrInvalidSignature   = errors.New("lti: invalid oauth signature")
	ErrMissingOAuthParams = errors.New("lti: missing oauth parameters")
	ErrReplayedNonce      = errors.New("lti: oauth nonce already used")
)

// NonceKey identifies a launch for replay detection. Nonces only need to be
// unique per consumer and timestamp.
func NonceKey(form url.Values) string {
	return form.Get("oauth_consumer_key") + ":" + form.Get("oauth_timestamp") + ":" + form.Get("oauth_nonce")
}

// VerifyLaunch checks the OAuth 1.0 signature of a form-encoded launch.
// rawURL must be the URL as seen by the consumer, including scheme, host and
// query. Nonce reuse is not checked here; see NonceKey.
func VerifyLaunch(method, rawURL string, form url.Values, consumerKey, consumerSecret string, now time.Time) error {
	signature := form.Get("oauth_signature")
	if signature == "" || form.Get("oauth_timestamp") == "" || form.Get("oauth_nonce") == "" {
		return ErrMissingOAuthParams
	}
	if form.Get("oauth_consumer_key") != consumerKey {
		return ErrUnknownConsumer
	}
	if form.Get("oauth_signature_method") != signatureMethodHMACSHA1 {
		return fmt.Errorf("%w: %q", ErrUnsupportedMethod, form.Get("oauth_signature_method"))
	}

	ts, err := strconv.ParseInt(form.Get("oauth_timestamp"), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStaleTimestamp, err)
	}
	skew := now.Sub(time.Unix(ts, 0))
	if skew < -MaxTimestampSkew || skew > MaxTimestampSkew {
		return ErrStaleTimestamp
	}

	expected, err := Signature(method, rawURL, form, consumerSecret)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}
