package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lshigami/gradebridge/config"
	"github.com/lshigami/gradebridge/internal/apperr"
	"github.com/lshigami/gradebridge/internal/dto"
	"github.com/lshigami/gradebridge/internal/filestore"
	"github.com/lshigami/gradebridge/internal/metrics"
	"github.com/lshigami/gradebridge/internal/model"
	"github.com/lshigami/gradebridge/internal/repository"
)

func TestResolveToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("Missing token", func(t *testing.T) {
		_, err := f.submissions.ResolveToken(ctx, "")
		assert.Equal(t, apperr.KindMissingToken, apperr.KindOf(err))
		assert.Equal(t, http.StatusBadRequest, apperr.HTTPStatus(err))
	})

	t.Run("Unknown token", func(t *testing.T) {
		_, err := f.submissions.ResolveToken(ctx, "nonexistent")
		assert.Equal(t, apperr.KindInvalidToken, apperr.KindOf(err))
		assert.Equal(t, http.StatusNotFound, apperr.HTTPStatus(err))
	})

	t.Run("Describe token", func(t *testing.T) {
		record := f.launch(t, "u1", "hw1", "q1")

		info, err := f.submissions.DescribeToken(ctx, record.Token)
		require.NoError(t, err)
		assert.Equal(t, record.Token, info.Token)
		assert.Equal(t, "hw1", info.Header)
		assert.Equal(t, "q1", info.Subheader)
		assert.Equal(t, "u1", info.UserID)
		assert.True(t, info.CanSendOutcome)
		assert.Equal(t, fixedNow, info.CreatedAt)
	})
}

// Scenario A: launch "abc", submit with its token, the stored submission
// carries the launch.
func TestRecordSubmissionLinksLaunch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	record, err := f.launches.RegisterLaunch(ctx, LaunchInput{Form: dto.LaunchForm{
		OutcomeServiceURL: "https://edx.example.com/outcome",
		ResultSourcedID:   "abc",
		CustomHeader:      "hw1",
		CustomSubheader:   "q1",
	}})
	require.NoError(t, err)

	resp, err := f.submissions.RecordSubmission(ctx, dto.SubmissionRequest{
		Token:          record.Token,
		UserInfo:       &dto.UserInfoDTO{ID: "u1", DisplayName: "Ada"},
		SubmissionInfo: "first attempt",
		FileName:       "main.py",
		FileContent:    "print(1)",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "hw1", resp.Header)
	assert.Equal(t, "q1", resp.Subheader)
	assert.Equal(t, fixedNow, resp.Date)

	snap, err := f.repo.Get(ctx, model.CollectionSubmissions, resp.SubmissionID)
	require.NoError(t, err)
	var submission model.SubmissionDocument
	require.NoError(t, repository.Decode(snap.Data, &submission))
	assert.Equal(t, "abc", submission.Edx.Request.ResultSourcedID)
	assert.Equal(t, "u1", submission.UserInfo.ID)
	assert.Equal(t, fixedNow, submission.Date)

	sub := f.user(t, "u1").Record("hw1", "q1")
	require.NotNil(t, sub)
	assert.Equal(t, resp.SubmissionID, sub.SubmissionID)
	assert.Equal(t, "abc", sub.Edx.Request.ResultSourcedID)
	assert.Nil(t, sub.FinalGrade)
}

func TestRecordSubmission(t *testing.T) {
	ctx := context.Background()

	t.Run("Body assignment overrides the launch", func(t *testing.T) {
		f := newFixture(t)
		record := f.launch(t, "u1", "hw1", "q1")

		resp, err := f.submissions.RecordSubmission(ctx, dto.SubmissionRequest{
			Token:     record.Token,
			UserInfo:  &dto.UserInfoDTO{ID: "u1"},
			Header:    "hw2",
			Subheader: "q3",
		}, "")
		require.NoError(t, err)
		assert.Equal(t, "hw2", resp.Header)
		assert.NotNil(t, f.user(t, "u1").Record("hw2", "q3"))
	})

	t.Run("No assignment anywhere", func(t *testing.T) {
		f := newFixture(t)
		record, err := f.launches.RegisterLaunch(ctx, LaunchInput{Form: dto.LaunchForm{ResultSourcedID: "abc"}})
		require.NoError(t, err)

		_, err = f.submissions.RecordSubmission(ctx, dto.SubmissionRequest{Token: record.Token, UserInfo: &dto.UserInfoDTO{ID: "u1"}}, "")
		assert.Equal(t, apperr.KindMalformedBody, apperr.KindOf(err))
	})

	t.Run("Missing identity", func(t *testing.T) {
		f := newFixture(t)
		record := f.launch(t, "u1", "hw1", "q1")

		_, err := f.submissions.RecordSubmission(ctx, dto.SubmissionRequest{Token: record.Token}, "")
		assert.Equal(t, apperr.KindMalformedBody, apperr.KindOf(err))
	})

	t.Run("Missing token", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.submissions.RecordSubmission(ctx, dto.SubmissionRequest{UserInfo: &dto.UserInfoDTO{ID: "u1"}}, "")
		assert.Equal(t, apperr.KindMissingToken, apperr.KindOf(err))
	})

	t.Run("Resubmission keeps the final grade", func(t *testing.T) {
		f := newFixture(t)
		first := f.submit(t, "u1", "hw1", "q1")

		_, err := f.grades.SubmitUserGrades(ctx, "u1", dto.UserGradesRequest{Grades: map[string]map[string]any{"hw1": {"q1": 7}}})
		require.NoError(t, err)

		second := f.submit(t, "u1", "hw1", "q1")
		require.NotEqual(t, first.SubmissionID, second.SubmissionID)

		rec := f.user(t, "u1").Record("hw1", "q1")
		require.NotNil(t, rec.FinalGrade)
		assert.Equal(t, 7.0, *rec.FinalGrade)
		assert.Equal(t, second.SubmissionID, rec.SubmissionID)
	})

	t.Run("User link failure", func(t *testing.T) {
		base := newFixture(t)
		record := base.launch(t, "u1", "hw1", "q1")

		repo := &failingRepo{DocumentRepository: base.repo, setErr: errStoreDown}
		svc := NewSubmissionService(repo, nil, nil, metrics.NewNoopMetrics())

		_, err := svc.RecordSubmission(ctx, dto.SubmissionRequest{Token: record.Token, UserInfo: &dto.UserInfoDTO{ID: "u1"}}, "")
		require.Error(t, err)
		assert.Equal(t, apperr.KindStoreUnavailable, apperr.KindOf(err))
		assert.ErrorIs(t, err, errStoreDown)
		assert.Contains(t, err.Error(), "grading in edX will not be possible")
	})

	t.Run("Concurrent submissions of one user are all linked", func(t *testing.T) {
		f := newFixture(t)
		subheaders := []string{"q1", "q2", "q3", "q4", "q5", "q6"}
		tokens := make([]string, len(subheaders))
		for i, sub := range subheaders {
			tokens[i] = f.launch(t, "u1", "hw1", sub).Token
		}

		var wg conc.WaitGroup
		for _, tok := range tokens {
			wg.Go(func() {
				_, err := f.submissions.RecordSubmission(ctx, dto.SubmissionRequest{
					Token:    tok,
					UserInfo: &dto.UserInfoDTO{ID: "u1"},
				}, "")
				assert.NoError(t, err)
			})
		}
		wg.Wait()

		user := f.user(t, "u1")
		for _, sub := range subheaders {
			rec := user.Record("hw1", sub)
			if assert.NotNil(t, rec, sub) {
				assert.NotEmpty(t, rec.SubmissionID, sub)
			}
		}
	})
}

func TestRecordSubmissionWritesFileStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fs := afero.NewMemMapFs()

	svc := NewSubmissionService(f.repo, filestore.NewFileStore(fs, "/store"), nil, metrics.NewNoopMetrics()).(*submissionService)
	svc.now = func() time.Time { return fixedNow }

	record := f.launch(t, "u1", "hw1", "q1")
	_, err := svc.RecordSubmission(ctx, dto.SubmissionRequest{
		Token:          record.Token,
		UserInfo:       &dto.UserInfoDTO{ID: "u1", DisplayName: "Ada"},
		SubmissionInfo: "done",
		FileName:       "sub/dir/main.py",
		FileContent:    "print(1)",
	}, "")
	require.NoError(t, err)

	content, err := afero.ReadFile(fs, "/store/u1/main.py")
	require.NoError(t, err)
	assert.Equal(t, "print(1)", string(content))

	log, err := afero.ReadFile(fs, "/store/u1/submissions.log")
	require.NoError(t, err)
	assert.Equal(t, "\"Mon, 06 May 2024 07:08:09 GMT\",Ada,done\n", string(log))
}

func TestRecordSubmissionWithUserInfoService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer learner-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"hbp-42","displayName":"Grace"}`))
	}))
	defer server.Close()

	f := newFixture(t)
	ctx := context.Background()
	userInfo := NewUserInfoService(&config.Config{Submission: config.Submission{UserInfoURL: server.URL}})
	svc := NewSubmissionService(f.repo, nil, userInfo, metrics.NewNoopMetrics())
	record := f.launch(t, "ignored", "hw1", "q1")

	t.Run("Identity comes from the bearer token", func(t *testing.T) {
		resp, err := svc.RecordSubmission(ctx, dto.SubmissionRequest{
			Token:    record.Token,
			UserInfo: &dto.UserInfoDTO{ID: "spoofed"},
		}, "learner-token")
		require.NoError(t, err)
		assert.Equal(t, "hbp-42", resp.UserID)
		assert.NotNil(t, f.user(t, "hbp-42").Record("hw1", "q1"))
	})

	t.Run("Rejected bearer token", func(t *testing.T) {
		_, err := svc.RecordSubmission(ctx, dto.SubmissionRequest{Token: record.Token}, "stolen")
		assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	})

	t.Run("Missing bearer token", func(t *testing.T) {
		_, err := svc.RecordSubmission(ctx, dto.SubmissionRequest{Token: record.Token}, "")
		assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	})
}
