package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/lshigami/gradebridge/config"
	"github.com/lshigami/gradebridge/internal/apperr"
	"github.com/lshigami/gradebridge/internal/dto"
	"github.com/lshigami/gradebridge/internal/lti"
	"github.com/lshigami/gradebridge/internal/metrics"
	"github.com/lshigami/gradebridge/internal/model"
	"github.com/lshigami/gradebridge/internal/repository"
)

type OutcomeService interface {
	// DispatchOne sends the grades of one assignment of one user.
	DispatchOne(ctx context.Context, userID, header string) (*dto.DispatchResponse, error)
	// DispatchAll sends one assignment for every user that submitted it.
	DispatchAll(ctx context.Context, header string) (*dto.DispatchResponse, error)
	// DispatchUser sends every assignment of one user.
	DispatchUser(ctx context.Context, userID string) (*dto.DispatchResponse, error)
	// DispatchEverything sends every assignment of every user.
	DispatchEverything(ctx context.Context) (*dto.DispatchResponse, error)
}

type outcomeService struct {
	repo        repository.DocumentRepository
	sender      lti.OutcomeSender
	recorder    metrics.Recorder
	cfg         *config.Config
	scores      ScoreConverterService
	concurrency int
}

func NewOutcomeService(repo repository.DocumentRepository, sender lti.OutcomeSender, recorder metrics.Recorder, cfg *config.Config) OutcomeService {
	return &outcomeService{
		repo:        repo,
		sender:      sender,
		recorder:    recorder,
		cfg:         cfg,
		scores:      NewScoreConverterService(cfg.LTI.MaxGrade),
		concurrency: max(cfg.Batch.Concurrency, 1),
	}
}

// dispatchTarget is one user together with the headers to send.
type dispatchTarget struct {
	userID  string
	user    model.UserDocument
	headers []string
}

func (s *outcomeService) DispatchOne(ctx context.Context, userID, header string) (*dto.DispatchResponse, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, ok := user[header]; !ok {
		return nil, apperr.New(apperr.KindUnknownAssignment, "user %q never submitted assignment %q: no grades were sent to edX", userID, header)
	}
	results, err := s.dispatchUser(ctx, dispatchTarget{userID: userID, user: user, headers: []string{header}})
	if err != nil {
		return nil, err
	}
	return newDispatchResponse(results), nil
}

func (s *outcomeService) DispatchUser(ctx context.Context, userID string) (*dto.DispatchResponse, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	results, err := s.dispatchUser(ctx, dispatchTarget{userID: userID, user: user, headers: user.Headers()})
	if err != nil {
		return nil, err
	}
	return newDispatchResponse(results), nil
}

func (s *outcomeService) DispatchAll(ctx context.Context, header string) (*dto.DispatchResponse, error) {
	targets, err := s.listTargets(ctx, func(user model.UserDocument) []string {
		if _, ok := user[header]; !ok {
			return nil
		}
		return []string{header}
	})
	if err != nil {
		return nil, err
	}
	return s.dispatchBatch(ctx, targets)
}

func (s *outcomeService) DispatchEverything(ctx context.Context) (*dto.DispatchResponse, error) {
	targets, err := s.listTargets(ctx, model.UserDocument.Headers)
	if err != nil {
		return nil, err
	}
	return s.dispatchBatch(ctx, targets)
}

func (s *outcomeService) loadUser(ctx context.Context, userID string) (model.UserDocument, error) {
	snap, err := s.repo.Get(ctx, model.CollectionUsers, userID)
	if errors.Is(err, repository.ErrDocumentNotFound) {
		return nil, apperr.New(apperr.KindUnknownUser, "user %q has no submissions: no grades were sent to edX", userID)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "could not load user %q: no grades were sent to edX", userID)
	}
	var user model.UserDocument
	if err := repository.Decode(snap.Data, &user); err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "stored user %q is unreadable", userID)
	}
	return user, nil
}

// listTargets scans the users collection. Users for which pick returns no
// headers are skipped.
func (s *outcomeService) listTargets(ctx context.Context, pick func(model.UserDocument) []string) ([]dispatchTarget, error) {
	snaps, err := s.repo.List(ctx, model.CollectionUsers)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "could not list users: no grades were sent to edX")
	}

	var targets []dispatchTarget
	for _, snap := range snaps {
		var user model.UserDocument
		if err := repository.Decode(snap.Data, &user); err != nil {
			return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "stored user %q is unreadable", snap.ID)
		}
		if headers := pick(user); len(headers) > 0 {
			targets = append(targets, dispatchTarget{userID: snap.ID, user: user, headers: headers})
		}
	}
	return targets, nil
}

type dispatchResult struct {
	userID  string
	results []dto.OutcomeResult
	err     error
}

func (s *outcomeService) dispatchBatch(ctx context.Context, targets []dispatchTarget) (*dto.DispatchResponse, error) {
	p := pool.NewWithResults[dispatchResult]().WithMaxGoroutines(s.concurrency)
	for _, target := range targets {
		p.Go(func() dispatchResult {
			results, err := s.dispatchUser(ctx, target)
			return dispatchResult{userID: target.userID, results: results, err: err}
		})
	}

	var results []dto.OutcomeResult
	failures := map[string]error{}
	for _, r := range p.Wait() {
		if r.err != nil {
			failures[r.userID] = r.err
			continue
		}
		results = append(results, r.results...)
	}

	if err := apperr.NewBatchError("outcome dispatch", failures); err != nil {
		log.Warn().Err(err).Int("users", len(targets)).Msg("Outcome dispatch partially failed")
		return nil, err
	}
	return newDispatchResponse(results), nil
}

type outcomeCall struct {
	header    string
	subheader string
	record    *model.SubmissionRecord
	score     float64
}

// dispatchUser sends every targeted sub-record of one user. Nothing is sent
// unless all of them have a final grade and launch data.
func (s *outcomeService) dispatchUser(ctx context.Context, target dispatchTarget) (results []dto.OutcomeResult, err error) {
	start := time.Now()
	defer func() {
		result := metrics.ResultSuccess
		switch {
		case apperr.Is(err, apperr.KindNotReadyForDispatch):
			result = metrics.ResultNotReady
		case err != nil:
			result = metrics.ResultFailure
		}
		s.recorder.RecordOutcome(result, time.Since(start))
	}()

	var calls []outcomeCall
	var notReady []string
	for _, header := range target.headers {
		for _, subheader := range target.user.Subheaders(header) {
			record := target.user.Record(header, subheader)
			if !record.ReadyForDispatch() {
				notReady = append(notReady, header+"/"+subheader)
				continue
			}
			score, err := s.scores.ConvertToOutcomeScore(*record.FinalGrade)
			if err != nil {
				notReady = append(notReady, fmt.Sprintf("%s/%s (%v)", header, subheader, err))
				continue
			}
			calls = append(calls, outcomeCall{header: header, subheader: subheader, record: record, score: score})
		}
	}
	if len(notReady) > 0 {
		return nil, apperr.New(apperr.KindNotReadyForDispatch,
			"user %q has no final grade or launch data for %s: no grades were sent to edX", target.userID, strings.Join(notReady, ", "))
	}

	var mu sync.Mutex
	sent := map[string]int{}
	p := pool.New().WithErrors().WithMaxGoroutines(s.concurrency)
	for _, call := range calls {
		p.Go(func() error {
			if err := s.send(ctx, call.record, call.score); err != nil {
				return fmt.Errorf("%s/%s: %w", call.header, call.subheader, err)
			}
			mu.Lock()
			sent[call.header]++
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		log.Error().Err(err).Str("user_id", target.userID).Msg("Failed to send outcomes")
		return nil, apperr.Wrap(apperr.KindDispatchFailed, err, "sending grades of user %q failed: the edX gradebook may be partially updated", target.userID)
	}

	for _, header := range target.headers {
		results = append(results, dto.OutcomeResult{UserID: target.userID, Header: header, Sent: sent[header]})
	}
	log.Info().Str("user_id", target.userID).Strs("headers", target.headers).Int("sent", len(calls)).Msg("Outcomes sent")
	return results, nil
}

func (s *outcomeService) send(ctx context.Context, record *model.SubmissionRecord, score float64) error {
	consumerKey := s.cfg.LTI.ConsumerKey
	if consumerKey == "" {
		consumerKey = record.Edx.Request.ConsumerKey
	}
	return s.sender.SendReplaceResult(ctx, lti.ReplaceResultRequest{
		ConsumerKey:    consumerKey,
		ConsumerSecret: s.cfg.LTI.ConsumerSecret,
		ServiceURL:     record.Edx.Request.OutcomeServiceURL,
		SourcedID:      record.Edx.Request.ResultSourcedID,
		Score:          score,
	})
}

func newDispatchResponse(results []dto.OutcomeResult) *dto.DispatchResponse {
	sort.Slice(results, func(i, j int) bool {
		if results[i].UserID != results[j].UserID {
			return results[i].UserID < results[j].UserID
		}
		return results[i].Header < results[j].Header
	})
	resp := &dto.DispatchResponse{Results: results}
	if resp.Results == nil {
		resp.Results = []dto.OutcomeResult{}
	}
	for _, r := range results {
		resp.Sent += r.Sent
	}
	return resp
}
