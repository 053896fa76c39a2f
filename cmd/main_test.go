package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lshigami/gradebridge/config"
	"github.com/lshigami/gradebridge/internal/cache"
	adminctrl "github.com/lshigami/gradebridge/internal/controller/admin"
	userctrl "github.com/lshigami/gradebridge/internal/controller/user"
	"github.com/lshigami/gradebridge/internal/dto"
	"github.com/lshigami/gradebridge/internal/filestore"
	"github.com/lshigami/gradebridge/internal/lti"
	"github.com/lshigami/gradebridge/internal/metrics"
	"github.com/lshigami/gradebridge/internal/repository"
	"github.com/lshigami/gradebridge/internal/service"
	"github.com/lshigami/gradebridge/internal/token"
)

const poxSuccess = `<?xml version="1.0" encoding="UTF-8"?>
<imsx_POXEnvelopeResponse xmlns="http://www.imsglobal.org/services/ltiv1p1/xsd/imsoms_v1p0">
  <imsx_POXHeader><imsx_POXResponseHeaderInfo>
    <imsx_version>V1.0</imsx_version>
    <imsx_messageIdentifier>1</imsx_messageIdentifier>
    <imsx_statusInfo><imsx_codeMajor>success</imsx_codeMajor><imsx_severity>status</imsx_severity></imsx_statusInfo>
  </imsx_POXResponseHeaderInfo></imsx_POXHeader>
  <imsx_POXBody><replaceResultResponse/></imsx_POXBody>
</imsx_POXEnvelopeResponse>`

// edxStub plays the edX outcome service and records every body it receives.
type edxStub struct {
	mu     sync.Mutex
	bodies []string
}

func (s *edxStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.bodies = append(s.bodies, string(body))
	s.mu.Unlock()
	_, _ = io.WriteString(w, poxSuccess)
}

func (s *edxStub) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.bodies...)
}

type testApp struct {
	router *gin.Engine
	edx    *edxStub
	edxURL string
	files  afero.Fs
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	cfg := &config.Config{
		Server: config.Server{GinMode: gin.TestMode},
		Token:  config.Token{Secret: "test-secret"},
		Admin:  config.Admin{Token: "admin-token"},
		LTI: config.LTI{
			ConsumerKey:    "key",
			ConsumerSecret: "secret",
			VerifyLaunch:   true,
			MaxGrade:       10,
		},
		Batch: config.Batch{Concurrency: 2},
		CORS:  config.CORS{AllowOrigins: []string{"*"}},
	}

	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	repo := repository.NewBadgerDocumentRepository(db)
	t.Cleanup(func() { _ = repo.Close() })

	tokens, err := token.NewGenerator(cfg.Token.Secret)
	require.NoError(t, err)

	edx := &edxStub{}
	server := httptest.NewServer(edx)
	t.Cleanup(server.Close)

	files := afero.NewMemMapFs()
	recorder := metrics.NewNoopMetrics()

	router := NewGinEngine(cfg, recorder)
	err = RegisterRoutes(router, cfg, Controllers{
		Launch: userctrl.NewLaunchController(service.NewLaunchService(repo, tokens, cache.NewMemoryNonceStore(), recorder, cfg), cfg),
		Submission: userctrl.NewSubmissionController(
			service.NewSubmissionService(repo, filestore.NewFileStore(files, "submissions"), nil, recorder),
		),
		Grade:   adminctrl.NewGradeController(service.NewGradeService(repo, recorder, cfg)),
		Outcome: adminctrl.NewOutcomeController(service.NewOutcomeService(repo, lti.NewClient(), recorder, cfg)),
	})
	require.NoError(t, err)

	return &testApp{router: router, edx: edx, edxURL: server.URL + "/outcome", files: files}
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// signedLaunch returns launch form values signed for http://example.com + target.
func (a *testApp) signedLaunch(t *testing.T, target, userID, header, subheader string) url.Values {
	t.Helper()

	form := url.Values{
		"lis_outcome_service_url": {a.edxURL},
		"lis_result_sourcedid":    {userID + ":" + header + ":" + subheader},
		"custom_header":           {header},
		"custom_subheader":        {subheader},
		"user_id":                 {userID},
		"oauth_consumer_key":      {"key"},
		"oauth_signature_method":  {"HMAC-SHA1"},
		"oauth_timestamp":         {strconv.FormatInt(time.Now().Unix(), 10)},
		"oauth_nonce":             {"nonce-" + userID + header + subheader},
		"oauth_version":           {"1.0"},
	}
	signature, err := lti.Signature(http.MethodPost, "http://example.com"+target, form, "secret")
	require.NoError(t, err)
	form.Set("oauth_signature", signature)
	return form
}

func (a *testApp) postLaunch(target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req)
}

// launch posts a launch signed with the consumer secret and returns the token.
func (a *testApp) launch(t *testing.T, userID, header, subheader string) string {
	t.Helper()

	w := a.postLaunch("/api/v1/lti/launch", a.signedLaunch(t, "/api/v1/lti/launch", userID, header, subheader))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.LaunchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func (a *testApp) submit(t *testing.T, tok, userID, fileName string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"user_info":{"id":"` + userID + `","display_name":"Ada"},"file_name":"` + fileName + `","file_content":"print(1)"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(userctrl.TokenHeader, tok)
	return a.do(req)
}

func (a *testApp) admin(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer admin-token")
	return a.do(req)
}

func TestGradingRoundTrip(t *testing.T) {
	app := newTestApp(t)

	tok := app.launch(t, "u1", "hw1", "q1")

	w := app.do(httptest.NewRequest(http.MethodGet, "/api/v1/tokens/"+tok, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"can_send_outcome":true`)

	w = app.submit(t, tok, "u1", "solution.py")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	content, err := afero.ReadFile(app.files, "submissions/u1/solution.py")
	require.NoError(t, err)
	assert.Equal(t, "print(1)", string(content))

	// Nothing is sent before a final grade exists.
	w = app.admin("/api/v1/admin/outcomes/users/u1/hw1", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, app.edx.received())

	w = app.admin("/api/v1/admin/grades", `{"users":{"u1":{"hw1":{"q1":7}}}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.admin("/api/v1/admin/outcomes/users/u1/hw1", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"results":[{"user_id":"u1","header":"hw1","sent":1}],"sent":1}`, w.Body.String())

	bodies := app.edx.received()
	require.Len(t, bodies, 1)
	assert.Contains(t, bodies[0], "<sourcedId>u1:hw1:q1</sourcedId>")
	assert.Contains(t, bodies[0], "<textString>0.7</textString>")
}

func TestGradingRejectsUnknownSubAssignment(t *testing.T) {
	app := newTestApp(t)
	tok := app.launch(t, "u1", "hw1", "q1")
	require.Equal(t, http.StatusCreated, app.submit(t, tok, "u1", "a.py").Code)

	w := app.admin("/api/v1/admin/grades/users/u1/hw1", `{"grades":{"q1":5,"q9":5}}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// q1 was not graded either, so dispatch is still refused.
	w = app.admin("/api/v1/admin/outcomes/users/u1", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, app.edx.received())
}

func TestLaunchWithBadSignature(t *testing.T) {
	app := newTestApp(t)
	form := url.Values{
		"lis_result_sourcedid":   {"u1:hw1:q1"},
		"oauth_consumer_key":     {"key"},
		"oauth_signature_method": {"HMAC-SHA1"},
		"oauth_timestamp":        {strconv.FormatInt(time.Now().Unix(), 10)},
		"oauth_nonce":            {"forged-nonce"},
		"oauth_signature":        {"forged"},
	}

	assert.Equal(t, http.StatusUnauthorized, app.postLaunch("/api/v1/lti/launch", form).Code)
}

func TestLaunchWithQueryString(t *testing.T) {
	app := newTestApp(t)
	target := "/api/v1/lti/launch?course=c1"

	w := app.postLaunch(target, app.signedLaunch(t, target, "u1", "hw1", "q1"))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// signed without the query string, posted with it
	w = app.postLaunch(target, app.signedLaunch(t, "/api/v1/lti/launch", "u1", "hw1", "q2"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLaunchReplay(t *testing.T) {
	app := newTestApp(t)
	form := app.signedLaunch(t, "/api/v1/lti/launch", "u1", "hw1", "q1")

	w := app.postLaunch("/api/v1/lti/launch", form)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.postLaunch("/api/v1/lti/launch", form)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSubmissionWithUnknownToken(t *testing.T) {
	app := newTestApp(t)
	w := app.submit(t, "not-a-token", "u1", "a.py")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "grading in edX will not be possible")
}

func TestAdminRoutesNeedToken(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/api/v1/admin/grades", "/api/v1/admin/outcomes"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`))
		req.Header.Set("Authorization", "Bearer wrong")
		assert.Equal(t, http.StatusUnauthorized, app.do(req).Code, path)
	}
}

func TestSystemRoutes(t *testing.T) {
	app := newTestApp(t)

	w := app.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
