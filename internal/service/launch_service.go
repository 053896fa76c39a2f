package service

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"

	"github.com/lshigami/gradebridge/config"
	"github.com/lshigami/gradebridge/internal/apperr"
	"github.com/lshigami/gradebridge/internal/cache"
	"github.com/lshigami/gradebridge/internal/dto"
	"github.com/lshigami/gradebridge/internal/lti"
	"github.com/lshigami/gradebridge/internal/metrics"
	"github.com/lshigami/gradebridge/internal/model"
	"github.com/lshigami/gradebridge/internal/repository"
)

// TokenGenerator turns a result sourced id into an opaque token.
type TokenGenerator interface {
	Generate(resultSourcedID string) (string, error)
}

// LaunchInput is an LTI launch as received over HTTP. URL is the absolute
// launch URL the consumer signed; Params are the raw form values.
type LaunchInput struct {
	Form     dto.LaunchForm
	Params   url.Values
	Method   string
	URL      string
	Protocol string
	Host     string
}

type LaunchService interface {
	RegisterLaunch(ctx context.Context, input LaunchInput) (*model.LaunchRecord, error)
}

type launchService struct {
	repo     repository.DocumentRepository
	tokens   TokenGenerator
	nonces   cache.NonceStore
	recorder metrics.Recorder
	cfg      *config.Config
	now      func() time.Time
}

// NewLaunchService verifies launches when LTI_VERIFY_LAUNCH is set. A nil
// nonce store turns replay detection off.
func NewLaunchService(repo repository.DocumentRepository, tokens TokenGenerator, nonces cache.NonceStore, recorder metrics.Recorder, cfg *config.Config) LaunchService {
	return &launchService{repo: repo, tokens: tokens, nonces: nonces, recorder: recorder, cfg: cfg, now: time.Now}
}

func (s *launchService) RegisterLaunch(ctx context.Context, input LaunchInput) (*model.LaunchRecord, error) {
	record, err := s.registerLaunch(ctx, input)
	s.recorder.RecordLaunch(err == nil)
	return record, err
}

func (s *launchService) registerLaunch(ctx context.Context, input LaunchInput) (*model.LaunchRecord, error) {
	if s.cfg.LTI.VerifyLaunch {
		if err := lti.VerifyLaunch(input.Method, input.URL, input.Params, s.cfg.LTI.ConsumerKey, s.cfg.LTI.ConsumerSecret, s.now()); err != nil {
			log.Warn().Err(err).Str("url", input.URL).Msg("Rejected LTI launch")
			return nil, apperr.Wrap(apperr.KindUnauthorized, err, "launch signature could not be verified")
		}
		if err := s.rememberNonce(ctx, input.Params); err != nil {
			return nil, err
		}
	}

	var request model.LaunchRequest
	if err := copier.Copy(&request, &input.Form); err != nil {
		return nil, apperr.Wrap(apperr.KindMalformedBody, err, "invalid launch parameters")
	}
	request.Protocol = input.Protocol
	request.Host = input.Host

	token, err := s.tokens.Generate(request.ResultSourcedID)
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.KindInvalidInput, err, "could not generate token")
	}

	record := &model.LaunchRecord{
		Token:     token,
		Request:   request,
		CreatedAt: s.now().UTC(),
	}
	doc, err := repository.Encode(record)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "could not encode launch: grading in edX will not be possible")
	}
	id, err := s.repo.Insert(ctx, model.CollectionGradeIdentifier, doc)
	if err != nil {
		log.Error().Err(err).Str("context_id", request.ContextID).Msg("Failed to store LTI launch")
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "could not store launch: grading in edX will not be possible")
	}

	log.Info().Str("id", id).Str("header", request.CustomHeader).Str("subheader", request.CustomSubheader).Msg("LTI launch registered")
	return record, nil
}

// rememberNonce refuses a signed launch seen before. Nonces are kept for the
// whole window in which their timestamp is accepted.
func (s *launchService) rememberNonce(ctx context.Context, params url.Values) error {
	if s.nonces == nil {
		return nil
	}
	fresh, err := s.nonces.Remember(ctx, lti.NonceKey(params), 2*lti.MaxTimestampSkew)
	if err != nil {
		log.Error().Err(err).Msg("Failed to check launch nonce")
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "could not check launch nonce")
	}
	if !fresh {
		log.Warn().Str("nonce", params.Get("oauth_nonce")).Msg("Rejected replayed LTI launch")
		return apperr.Wrap(apperr.KindUnauthorized, lti.ErrReplayedNonce, "launch signature could not be verified")
	}
	return nil
}
