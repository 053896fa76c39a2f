package lti

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // OAuth 1.0 HMAC-SHA1 is mandated by LTI 1.1
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

const (
	signatureMethodHMACSHA1 = "HMAC-SHA1"
	oauthVersion            = "1.0"
)

// percentEncode applies RFC 3986 encoding as required by OAuth 1.0 section 3.6.
func percentEncode(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if ('A' <= c && c <= 'Z') || ('a' <= c && c <= 'z') || ('0' <= c && c <= '9') ||
			c == '-' || c == '.' || c == '_' || c == '~' {
			sb.WriteByte(c)
			continue
		}
		fmt.Fprintf(&sb, "%%%02X", c)
	}
	return sb.String()
}

// baseURL normalises rawURL for the signature base string and returns its
// query parameters separately.
func baseURL(rawURL string) (string, url.Values, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", nil, fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && !(scheme == "http" && port == "80") && !(scheme == "https" && port == "443") {
		host += ":" + port
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return scheme + "://" + host + path, u.Query(), nil
}

// signatureBase builds the OAuth 1.0 signature base string. oauth_signature
// itself is never part of the base.
func signatureBase(method, rawURL string, params url.Values) (string, error) {
	base, query, err := baseURL(rawURL)
	if err != nil {
		return "", err
	}

	type pair struct{ k, v string }
	var pairs []pair
	add := func(values url.Values) {
		for k, vs := range values {
			if k == "oauth_signature" {
				continue
			}
			for _, v := range vs {
				pairs = append(pairs, pair{percentEncode(k), percentEncode(v)})
			}
		}
	}
	add(params)
	add(query)

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k != pairs[j].k {
			return pairs[i].k < pairs[j].k
		}
		return pairs[i].v < pairs[j].v
	})
	encoded := make([]string, len(pairs))
	for i, p := range pairs {
		encoded[i] = p.k + "=" + p.v
	}

	return strings.ToUpper(method) + "&" + percentEncode(base) + "&" + percentEncode(strings.Join(encoded, "&")), nil
}

// Signature computes the HMAC-SHA1 oauth_signature for a request. There is no
// token secret in LTI, so the key is the encoded consumer secret followed by "&".
func Signature(method, rawURL string, params url.Values, consumerSecret string) (string, error) {
	base, err := signatureBase(method, rawURL, params)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha1.New, []byte(percentEncode(consumerSecret)+"&"))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// authorizationHeader renders OAuth parameters as an Authorization header value.
func authorizationHeader(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf(`%s="%s"`, percentEncode(k), percentEncode(params.Get(k))))
	}
	return "OAuth " + strings.Join(parts, ", ")
}
