package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"github.com/lshigami/gradebridge/config"
	"github.com/lshigami/gradebridge/internal/dto"
	"github.com/lshigami/gradebridge/internal/lti"
	"github.com/lshigami/gradebridge/internal/metrics"
	"github.com/lshigami/gradebridge/internal/model"
	"github.com/lshigami/gradebridge/internal/repository"
	"github.com/lshigami/gradebridge/internal/token"
)

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func newTestRepo(t *testing.T) repository.DocumentRepository {
	t.Helper()

	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	repo := repository.NewBadgerDocumentRepository(db)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func newTestConfig() *config.Config {
	return &config.Config{
		Token: config.Token{Secret: "test-secret"},
		LTI: config.LTI{
			ConsumerKey:    "key",
			ConsumerSecret: "secret",
			MaxGrade:       10,
		},
		Batch: config.Batch{Concurrency: 4},
	}
}

func newTestTokens(t *testing.T) *token.Generator {
	t.Helper()
	g, err := token.NewGenerator("test-secret")
	require.NoError(t, err)
	return g
}

// failingRepo fails every call it has an error for and delegates the rest.
type failingRepo struct {
	repository.DocumentRepository
	insertErr error
	getErr    error
	setErr    error
	calls     int
	mu        sync.Mutex
}

func (r *failingRepo) count() {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
}

func (r *failingRepo) Insert(ctx context.Context, collection string, data repository.Document) (string, error) {
	r.count()
	if r.insertErr != nil {
		return "", r.insertErr
	}
	return r.DocumentRepository.Insert(ctx, collection, data)
}

func (r *failingRepo) Get(ctx context.Context, collection, id string) (*repository.Snapshot, error) {
	r.count()
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.DocumentRepository.Get(ctx, collection, id)
}

func (r *failingRepo) Set(ctx context.Context, collection, id string, data repository.Document) error {
	r.count()
	if r.setErr != nil {
		return r.setErr
	}
	return r.DocumentRepository.Set(ctx, collection, id, data)
}

// Modify fails on the read with getErr and on the write with setErr.
func (r *failingRepo) Modify(ctx context.Context, collection, id string, fn repository.ModifyFunc) error {
	r.count()
	if r.getErr != nil {
		return r.getErr
	}
	if r.setErr != nil {
		return r.setErr
	}
	return r.DocumentRepository.Modify(ctx, collection, id, fn)
}

var errStoreDown = errors.New("store is down")

// fakeSender records outcome calls; sourced ids in failFor are rejected.
type fakeSender struct {
	mu      sync.Mutex
	calls   []lti.ReplaceResultRequest
	failFor map[string]error
}

func (f *fakeSender) SendReplaceResult(_ context.Context, req lti.ReplaceResultRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if err, ok := f.failFor[req.SourcedID]; ok {
		return err
	}
	return nil
}

func (f *fakeSender) callsFor(prefix string) []lti.ReplaceResultRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []lti.ReplaceResultRequest
	for _, c := range f.calls {
		if strings.HasPrefix(c.SourcedID, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// fixture builds the services on one in-memory store.
type fixture struct {
	repo        repository.DocumentRepository
	cfg         *config.Config
	launches    *launchService
	submissions *submissionService
	grades      GradeService
	sender      *fakeSender
	outcomes    OutcomeService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := newTestRepo(t)
	cfg := newTestConfig()
	recorder := metrics.NewNoopMetrics()
	sender := &fakeSender{failFor: map[string]error{}}

	launches := NewLaunchService(repo, newTestTokens(t), nil, recorder, cfg).(*launchService)
	launches.now = func() time.Time { return fixedNow }
	submissions := NewSubmissionService(repo, nil, nil, recorder).(*submissionService)
	submissions.now = func() time.Time { return fixedNow }

	return &fixture{
		repo:        repo,
		cfg:         cfg,
		launches:    launches,
		submissions: submissions,
		grades:      NewGradeService(repo, recorder, cfg),
		sender:      sender,
		outcomes:    NewOutcomeService(repo, sender, recorder, cfg),
	}
}

// launch registers an LTI launch whose sourced id is "<user>:<header>:<subheader>".
func (f *fixture) launch(t *testing.T, userID, header, subheader string) *model.LaunchRecord {
	t.Helper()
	record, err := f.launches.RegisterLaunch(context.Background(), LaunchInput{
		Form: dto.LaunchForm{
			OutcomeServiceURL: "https://edx.example.com/outcome",
			ResultSourcedID:   userID + ":" + header + ":" + subheader,
			CustomHeader:      header,
			CustomSubheader:   subheader,
			UserID:            userID,
		},
		Protocol: "https",
		Host:     "bridge.example.com",
	})
	require.NoError(t, err)
	return record
}

// submit launches and submits (header, subheader) for userID.
func (f *fixture) submit(t *testing.T, userID, header, subheader string) *dto.SubmissionResponse {
	t.Helper()
	record := f.launch(t, userID, header, subheader)
	resp, err := f.submissions.RecordSubmission(context.Background(), dto.SubmissionRequest{
		Token:    record.Token,
		UserInfo: &dto.UserInfoDTO{ID: userID, DisplayName: "User " + userID},
		FileName: header + "-" + subheader + ".py",
	}, "")
	require.NoError(t, err)
	return resp
}

func (f *fixture) user(t *testing.T, userID string) model.UserDocument {
	t.Helper()
	snap, err := f.repo.Get(context.Background(), model.CollectionUsers, userID)
	require.NoError(t, err)
	var user model.UserDocument
	require.NoError(t, repository.Decode(snap.Data, &user))
	return user
}
