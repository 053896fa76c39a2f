package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"

	"github.com/lshigami/gradebridge/internal/apperr"
	"github.com/lshigami/gradebridge/internal/dto"
	"github.com/lshigami/gradebridge/internal/filestore"
	"github.com/lshigami/gradebridge/internal/metrics"
	"github.com/lshigami/gradebridge/internal/model"
	"github.com/lshigami/gradebridge/internal/repository"
)

type SubmissionService interface {
	// ResolveToken returns the launch a token was issued for.
	ResolveToken(ctx context.Context, token string) (*model.LaunchRecord, error)
	// DescribeToken resolves a token into the assignment metadata shown to learners.
	DescribeToken(ctx context.Context, token string) (*dto.TokenInfoResponse, error)
	// RecordSubmission stores a submission and links it to the user's grade
	// record. bearer is the learner's access token, if any.
	RecordSubmission(ctx context.Context, req dto.SubmissionRequest, bearer string) (*dto.SubmissionResponse, error)
}

type submissionService struct {
	repo     repository.DocumentRepository
	files    filestore.FileStore
	userInfo UserInfoService
	recorder metrics.Recorder
	now      func() time.Time
}

// NewSubmissionService wires the recorder. files and userInfo may be nil.
func NewSubmissionService(repo repository.DocumentRepository, files filestore.FileStore, userInfo UserInfoService, recorder metrics.Recorder) SubmissionService {
	return &submissionService{repo: repo, files: files, userInfo: userInfo, recorder: recorder, now: time.Now}
}

func (s *submissionService) ResolveToken(ctx context.Context, token string) (*model.LaunchRecord, error) {
	if token == "" {
		return nil, apperr.New(apperr.KindMissingToken, "missing token: grading in edX will not be possible")
	}

	matches, err := s.repo.QueryEquals(ctx, model.CollectionGradeIdentifier, "token", token, 1)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "could not look up token")
	}
	if len(matches) == 0 {
		return nil, apperr.New(apperr.KindInvalidToken, "invalid token: grading in edX will not be possible")
	}

	var record model.LaunchRecord
	if err := repository.Decode(matches[0].Data, &record); err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "stored launch is unreadable")
	}
	return &record, nil
}

func (s *submissionService) DescribeToken(ctx context.Context, token string) (*dto.TokenInfoResponse, error) {
	record, err := s.ResolveToken(ctx, token)
	if err != nil {
		return nil, err
	}

	var resp dto.TokenInfoResponse
	if err := copier.Copy(&resp, &record.Request); err != nil {
		return nil, fmt.Errorf("map launch request: %w", err)
	}
	resp.Token = record.Token
	resp.Header = record.Request.CustomHeader
	resp.Subheader = record.Request.CustomSubheader
	resp.CanSendOutcome = record.CanSendOutcome()
	resp.CreatedAt = record.CreatedAt
	return &resp, nil
}

func (s *submissionService) RecordSubmission(ctx context.Context, req dto.SubmissionRequest, bearer string) (*dto.SubmissionResponse, error) {
	resp, err := s.recordSubmission(ctx, req, bearer)
	s.recorder.RecordSubmission(err == nil)
	return resp, err
}

func (s *submissionService) recordSubmission(ctx context.Context, req dto.SubmissionRequest, bearer string) (*dto.SubmissionResponse, error) {
	launch, err := s.ResolveToken(ctx, req.Token)
	if err != nil {
		return nil, err
	}

	user, err := s.identify(ctx, req, bearer)
	if err != nil {
		return nil, err
	}

	header, subheader := req.Header, req.Subheader
	if header == "" {
		header = launch.Request.CustomHeader
	}
	if subheader == "" {
		subheader = launch.Request.CustomSubheader
	}
	if header == "" || subheader == "" {
		return nil, apperr.New(apperr.KindMalformedBody, "submission names no assignment and the launch has no custom_header/custom_subheader")
	}

	date := s.now().UTC()
	submission := model.SubmissionDocument{
		UserInfo:       *user,
		SubmissionInfo: req.SubmissionInfo,
		FileName:       req.FileName,
		FileContent:    req.FileContent,
		Answer:         req.Answer,
		Header:         header,
		Subheader:      subheader,
		Edx:            *launch,
		Date:           date,
	}
	doc, err := repository.Encode(submission)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "could not encode submission")
	}
	submissionID, err := s.repo.Insert(ctx, model.CollectionSubmissions, doc)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to store submission")
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "could not store submission: grading in edX will not be possible")
	}

	if err := s.linkToUser(ctx, user.ID, header, subheader, &model.SubmissionRecord{
		Edx:          launch,
		SubmissionID: submissionID,
		FileName:     req.FileName,
		SubmittedAt:  &date,
	}); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Str("submission_id", submissionID).Msg("Failed to link submission to user")
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "submission %s stored but not linked to the user: grading in edX will not be possible", submissionID)
	}

	if s.files != nil {
		if err := s.files.Store(filestore.Entry{
			UserID:         user.ID,
			DisplayName:    user.DisplayName,
			SubmissionInfo: req.SubmissionInfo,
			FileName:       req.FileName,
			FileContent:    []byte(req.FileContent),
			Date:           date,
		}); err != nil {
			log.Error().Err(err).Str("user_id", user.ID).Str("submission_id", submissionID).Msg("Failed to write submission to file store")
			return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "submission %s stored but not written to the file store", submissionID)
		}
	}

	log.Info().Str("user_id", user.ID).Str("header", header).Str("subheader", subheader).Str("submission_id", submissionID).Msg("Submission recorded")
	return &dto.SubmissionResponse{
		SubmissionID: submissionID,
		UserID:       user.ID,
		Header:       header,
		Subheader:    subheader,
		FileName:     req.FileName,
		Date:         date,
	}, nil
}

func (s *submissionService) identify(ctx context.Context, req dto.SubmissionRequest, bearer string) (*model.UserInfo, error) {
	if s.userInfo != nil {
		return s.userInfo.GetUserInfo(ctx, bearer)
	}
	if req.UserInfo == nil || req.UserInfo.ID == "" {
		return nil, apperr.New(apperr.KindMalformedBody, "user_info.id is required")
	}
	return &model.UserInfo{ID: req.UserInfo.ID, DisplayName: req.UserInfo.DisplayName}, nil
}

// linkToUser upserts users/<id>[header][subheader]. A grade given to an
// earlier submission of the same assignment survives the resubmission.
func (s *submissionService) linkToUser(ctx context.Context, userID, header, subheader string, record *model.SubmissionRecord) error {
	return s.repo.Modify(ctx, model.CollectionUsers, userID, func(current repository.Document, _ bool) (repository.Document, error) {
		user := model.UserDocument{}
		if err := repository.Decode(current, &user); err != nil {
			return nil, err
		}
		link := *record
		if previous := user.Record(header, subheader); previous != nil {
			link.FinalGrade = previous.FinalGrade
		}
		user.Put(header, subheader, &link)
		return repository.Encode(user)
	})
}
