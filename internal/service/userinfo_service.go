package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/lshigami/gradebridge/config"
	"github.com/lshigami/gradebridge/internal/apperr"
	"github.com/lshigami/gradebridge/internal/model"
)

// UserInfoService resolves the identity behind a learner's bearer token.
type UserInfoService interface {
	GetUserInfo(ctx context.Context, bearer string) (*model.UserInfo, error)
}

type userInfoService struct {
	url    string
	client *http.Client
}

// NewUserInfoService returns nil when USERINFO_URL is not configured; the
// submission service then trusts the identity sent in the body.
func NewUserInfoService(cfg *config.Config) UserInfoService {
	if cfg.Submission.UserInfoURL == "" {
		log.Warn().Msg("USERINFO_URL is not set. Submissions will use the user info sent in the request body.")
		return nil
	}
	return &userInfoService{url: cfg.Submission.UserInfoURL, client: &http.Client{Timeout: 10 * time.Second}}
}

func (s *userInfoService) GetUserInfo(ctx context.Context, bearer string) (*model.UserInfo, error) {
	if bearer == "" {
		return nil, apperr.New(apperr.KindUnauthorized, "authorization header missing")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnknown, err, "user info service unreachable").WithCode(http.StatusBadGateway)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, apperr.New(apperr.KindUnauthorized, "authentication error")
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, apperr.New(apperr.KindUnknown, "user info service answered %d", resp.StatusCode).WithCode(http.StatusBadGateway)
	}

	var info model.UserInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return nil, apperr.Wrap(apperr.KindUnknown, err, "invalid user info response").WithCode(http.StatusBadGateway)
	}
	if info.ID == "" {
		return nil, apperr.New(apperr.KindUnknown, "user info response has no id").WithCode(http.StatusBadGateway)
	}
	return &info, nil
}
