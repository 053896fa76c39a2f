package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/lshigami/gradebridge/config"
	"github.com/lshigami/gradebridge/internal/apperr"
	"github.com/lshigami/gradebridge/internal/dto"
	"github.com/lshigami/gradebridge/internal/metrics"
	"github.com/lshigami/gradebridge/internal/model"
	"github.com/lshigami/gradebridge/internal/repository"
)

// userGrades is header -> subheader -> grade for one user.
type userGrades map[string]map[string]float64

type GradeService interface {
	SubmitGrades(ctx context.Context, req dto.BatchGradesRequest) (*dto.GradeUpdateResponse, error)
	SubmitUserGrades(ctx context.Context, userID string, req dto.UserGradesRequest) (*dto.GradeUpdateResponse, error)
	SubmitAssignmentGrades(ctx context.Context, userID, header string, req dto.AssignmentGradesRequest) (*dto.GradeUpdateResponse, error)
}

type gradeService struct {
	repo        repository.DocumentRepository
	recorder    metrics.Recorder
	concurrency int
}

func NewGradeService(repo repository.DocumentRepository, recorder metrics.Recorder, cfg *config.Config) GradeService {
	return &gradeService{repo: repo, recorder: recorder, concurrency: max(cfg.Batch.Concurrency, 1)}
}

func (s *gradeService) SubmitGrades(ctx context.Context, req dto.BatchGradesRequest) (*dto.GradeUpdateResponse, error) {
	if req.Users == nil {
		return nil, apperr.New(apperr.KindMalformedBody, "request body must contain a users object: no grades were recorded")
	}
	batch := make(map[string]userGrades, len(req.Users))
	for userID, headers := range req.Users {
		grades, err := parseUserGrades(headers)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindMalformedBody, err, "invalid grades for user %q: no grades were recorded", userID)
		}
		batch[userID] = grades
	}
	return s.apply(ctx, batch)
}

func (s *gradeService) SubmitUserGrades(ctx context.Context, userID string, req dto.UserGradesRequest) (*dto.GradeUpdateResponse, error) {
	if req.Grades == nil {
		return nil, apperr.New(apperr.KindMalformedBody, "request body must contain a grades object: no grades were recorded")
	}
	grades, err := parseUserGrades(req.Grades)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindMalformedBody, err, "invalid grades: no grades were recorded")
	}
	return s.applyOne(ctx, userID, grades)
}

func (s *gradeService) SubmitAssignmentGrades(ctx context.Context, userID, header string, req dto.AssignmentGradesRequest) (*dto.GradeUpdateResponse, error) {
	if req.Grades == nil {
		return nil, apperr.New(apperr.KindMalformedBody, "request body must contain a grades object: no grades were recorded")
	}
	subs, err := parseGrades(req.Grades)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindMalformedBody, err, "invalid grades: no grades were recorded")
	}
	return s.applyOne(ctx, userID, userGrades{header: subs})
}

// applyOne reports a single user's failure as is rather than as a batch.
func (s *gradeService) applyOne(ctx context.Context, userID string, grades userGrades) (*dto.GradeUpdateResponse, error) {
	count, err := s.applyUser(ctx, userID, grades)
	if err != nil {
		return nil, err
	}
	return &dto.GradeUpdateResponse{UpdatedUsers: []string{userID}, Grades: count}, nil
}

type gradeResult struct {
	userID string
	grades int
	err    error
}

// apply runs one task per user and joins them all. A failing user never stops
// the others, and their writes stay committed.
func (s *gradeService) apply(ctx context.Context, batch map[string]userGrades) (*dto.GradeUpdateResponse, error) {
	p := pool.NewWithResults[gradeResult]().WithMaxGoroutines(s.concurrency)
	for userID, grades := range batch {
		p.Go(func() gradeResult {
			count, err := s.applyUser(ctx, userID, grades)
			return gradeResult{userID: userID, grades: count, err: err}
		})
	}

	resp := &dto.GradeUpdateResponse{UpdatedUsers: []string{}}
	failures := map[string]error{}
	for _, result := range p.Wait() {
		if result.err != nil {
			failures[result.userID] = result.err
			continue
		}
		resp.UpdatedUsers = append(resp.UpdatedUsers, result.userID)
		resp.Grades += result.grades
	}
	sort.Strings(resp.UpdatedUsers)

	if err := apperr.NewBatchError("grade update", failures); err != nil {
		log.Warn().Err(err).Strs("updated_users", resp.UpdatedUsers).Msg("Grade update partially failed")
		return nil, err
	}
	return resp, nil
}

// applyUser validates every grade against the stored document before changing
// anything, then writes the whole document back in one Modify so a submission
// linked meanwhile is not overwritten.
func (s *gradeService) applyUser(ctx context.Context, userID string, grades userGrades) (count int, err error) {
	defer func() {
		result := metrics.ResultSuccess
		if err != nil {
			result = metrics.ResultFailure
		}
		s.recorder.RecordGradeUpdate(result)
	}()

	err = s.repo.Modify(ctx, model.CollectionUsers, userID, func(current repository.Document, exists bool) (repository.Document, error) {
		if !exists {
			return nil, apperr.New(apperr.KindUnknownUser, "user %q has no submissions: grades were not recorded", userID)
		}
		var user model.UserDocument
		if err := repository.Decode(current, &user); err != nil {
			return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "stored user %q is unreadable", userID)
		}

		headers := sortedKeys(grades)
		for _, header := range headers {
			if _, ok := user[header]; !ok {
				return nil, apperr.New(apperr.KindUnknownAssignment, "user %q never submitted assignment %q: grades were not recorded", userID, header)
			}
			for _, subheader := range sortedKeys(grades[header]) {
				if rec := user.Record(header, subheader); rec == nil || rec.Edx == nil {
					return nil, apperr.New(apperr.KindUnknownSubAssignment, "user %q never submitted %q of assignment %q: grades were not recorded", userID, subheader, header)
				}
			}
		}

		count = 0
		for _, header := range headers {
			for subheader, grade := range grades[header] {
				g := grade
				user.Record(header, subheader).FinalGrade = &g
				count++
			}
		}
		return repository.Encode(user)
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return 0, err
		}
		return 0, apperr.Wrap(apperr.KindStoreUnavailable, err, "could not save grades of user %q: grades were not recorded", userID)
	}

	log.Info().Str("user_id", userID).Int("grades", count).Msg("Final grades recorded")
	return count, nil
}

func parseUserGrades(headers map[string]map[string]any) (userGrades, error) {
	grades := make(userGrades, len(headers))
	for header, subs := range headers {
		if subs == nil {
			return nil, fmt.Errorf("assignment %q has no grades object", header)
		}
		parsed, err := parseGrades(subs)
		if err != nil {
			return nil, fmt.Errorf("assignment %q: %w", header, err)
		}
		grades[header] = parsed
	}
	return grades, nil
}

func parseGrades(subs map[string]any) (map[string]float64, error) {
	parsed := make(map[string]float64, len(subs))
	for subheader, raw := range subs {
		grade, err := parseGrade(raw)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", subheader, err)
		}
		parsed[subheader] = grade
	}
	return parsed, nil
}

// parseGrade accepts JSON numbers and numeric strings.
func parseGrade(raw any) (float64, error) {
	var grade float64
	switch v := raw.(type) {
	case float64:
		grade = v
	case float32:
		grade = float64(v)
	case int:
		grade = float64(v)
	case int64:
		grade = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("grade %q is not a number", v)
		}
		grade = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("grade %q is not a number", v)
		}
		grade = f
	default:
		return 0, fmt.Errorf("grade must be a number or a numeric string, got %T", raw)
	}
	if math.IsNaN(grade) || math.IsInf(grade, 0) {
		return 0, fmt.Errorf("grade %v is not finite", grade)
	}
	return grade, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
