package services

import (
	"context"
	"fmt"

	"github.com/justsurfingit/jobify/internal/apiclient"
	"github.com/justsurfingit/jobify/internal/dtos"
	"github.com/justsurfingit/jobify/internal/models"
	"github.com/justsurfingit/jobify/internal/querycache"
)

// Cache keys of user data.
var (
	UserKey     = querycache.Key{"user"}
	AppStatsKey = querycache.Key{"admin", "app-stats"}
)

type UserService struct {
	API   *apiclient.Client
	Cache *querycache.Cache
}

func NewUserService(api *apiclient.Client, cache *querycache.Cache) *UserService {
	return &UserService{
		API:   api,
		Cache: cache,
	}
}

// CurrentUser returns the logged-in user. It fails with a 401 HTTPError without a session.
func (s *UserService) CurrentUser(ctx context.Context, opts ...querycache.QueryOption) (*models.User, error) {
	return querycache.Ensure(ctx, s.Cache, UserKey, s.API.CurrentUser, opts...)
}

func (s *UserService) AppStats(ctx context.Context) (*models.AppStats, error) {
	return querycache.Ensure(ctx, s.Cache, AppStatsKey, s.API.AppStats)
}

func (s *UserService) Register(ctx context.Context, req dtos.RegisterRequest) error {
	return s.API.Register(ctx, req)
}

// Login starts a session. Anything cached belongs to whoever was logged in before.
func (s *UserService) Login(ctx context.Context, req dtos.LoginRequest) error {
	if err := s.API.Login(ctx, req); err != nil {
		return err
	}
	s.Cache.Invalidate(nil)
	return nil
}

// UpdateProfile sends the profile form, with the avatar when one was uploaded.
func (s *UserService) UpdateProfile(ctx context.Context, req dtos.ProfileRequest) error {
	fields := map[string]string{
		"name":     req.Name,
		"lastName": req.LastName,
		"email":    req.Email,
		"location": req.Location,
	}

	var file *apiclient.FilePart
	if req.Avatar != nil {
		f, err := req.Avatar.Open()
		if err != nil {
			return fmt.Errorf("open avatar: %w", err)
		}
		defer f.Close()
		file = &apiclient.FilePart{Field: "avatar", Filename: req.Avatar.Filename, Content: f}
	}

	form, err := apiclient.NewMultipart(fields, file)
	if err != nil {
		return err
	}
	if err := s.API.UpdateUser(ctx, form); err != nil {
		return err
	}

	s.Cache.Invalidate(UserKey)
	return nil
}
