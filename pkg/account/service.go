// Package account wraps the auth and user endpoints and keeps the session
// store in step with what the server returns.
package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/eva-app/evaclient/pkg/logging"
	"github.com/eva-app/evaclient/pkg/models"
	"github.com/eva-app/evaclient/pkg/request"
)

// Endpoint paths.
const (
	PathLogin    = "/api/auth/login"
	PathUserInfo = "/api/auth/userInfo"
	PathProfile  = "/api/user/profile"
	PathAvatar   = "/api/user/avatar"
)

var (
	// ErrMissingCode is returned by SignIn without a login code.
	ErrMissingCode = errors.New("login code is required")
	// ErrNoToken is returned when the server accepts a login but sends no token.
	ErrNoToken = errors.New("login response has no token")
	// ErrNotSignedIn is returned when an update needs the current identity and there is none.
	ErrNotSignedIn = errors.New("not signed in")
)

// MsgLoginFailed is shown when the server accepts the login call but its
// answer cannot sign the session in. Failed calls are announced by the
// orchestrator.
const MsgLoginFailed = "login failed"

// Notifier shows short messages to the user.
type Notifier interface {
	Toast(msg string)
}

// Requester is the subset of *request.Orchestrator the service calls.
type Requester interface {
	Post(ctx context.Context, path string, body any, opts ...request.Options) (json.RawMessage, error)
	Put(ctx context.Context, path string, body any, opts ...request.Options) (json.RawMessage, error)
}

// Session is the subset of *session.Store the service updates.
type Session interface {
	Login(token string, identity *models.UserInfo)
	Logout()
	SetIdentity(identity *models.UserInfo)
	Identity() *models.UserInfo
}

// Service performs account calls.
type Service struct {
	req     Requester
	session Session
	ui      Notifier
	log     *zap.Logger
}

// New creates a Service. A nil ui or log discards output.
func New(req Requester, s Session, ui Notifier, log *zap.Logger) *Service {
	if ui == nil {
		ui = request.NopUI{}
	}
	return &Service{req: req, session: s, ui: ui, log: logging.OrNop(log)}
}

// SignIn exchanges a platform login code for a token and identity and
// signs the session in.
func (s *Service) SignIn(ctx context.Context, code string) (*models.UserInfo, error) {
	if code == "" {
		return nil, ErrMissingCode
	}

	raw, err := s.req.Post(ctx, PathLogin, models.LoginParams{Code: code}, request.Options{ShowLoading: true})
	if err != nil {
		s.log.Warn("sign in failed", zap.Error(err))
		return nil, fmt.Errorf("sign in: %w", err)
	}
	data, err := request.Decode[models.LoginData](raw, nil)
	if err == nil && data.Token == "" {
		err = ErrNoToken
	}
	if err != nil {
		s.log.Warn("sign in failed", zap.Error(err))
		s.ui.Toast(MsgLoginFailed)
		return nil, fmt.Errorf("sign in: %w", err)
	}

	s.session.Login(data.Token, &data.UserInfo)
	return data.UserInfo.Clone(), nil
}

// SignOut forgets the local session. The server keeps no session state.
func (s *Service) SignOut() {
	s.session.Logout()
}

// RefreshIdentity fetches the signed-in user and replaces the stored identity.
func (s *Service) RefreshIdentity(ctx context.Context) (*models.UserInfo, error) {
	u, err := request.Decode[models.UserInfo](s.req.Post(ctx, PathUserInfo, nil))
	if err != nil {
		return nil, fmt.Errorf("refresh identity: %w", err)
	}
	s.session.SetIdentity(&u)
	return &u, nil
}

// Profile fetches the detailed profile without touching the session.
func (s *Service) Profile(ctx context.Context) (*models.UserInfo, error) {
	u, err := request.Decode[models.UserInfo](s.req.Post(ctx, PathProfile, nil))
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &u, nil
}

// UpdateProfile saves the changed fields and writes the result through to
// the session. When the server echoes no user, the patch is applied to the
// current identity instead.
func (s *Service) UpdateProfile(ctx context.Context, patch models.ProfileUpdate) (*models.UserInfo, error) {
	u, err := request.Decode[*models.UserInfo](
		s.req.Put(ctx, PathProfile, patch, request.Options{ShowLoading: true}),
	)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	if u == nil || u.ID == "" {
		u = s.session.Identity()
		if u == nil {
			return nil, fmt.Errorf("update profile: %w", ErrNotSignedIn)
		}
		patch.Apply(u)
	}
	s.session.SetIdentity(u)
	return u.Clone(), nil
}

// UploadAvatar sends a local image path and returns the hosted URL. The
// stored identity picks up the new avatar.
func (s *Service) UploadAvatar(ctx context.Context, filePath string) (string, error) {
	res, err := request.Decode[models.AvatarURL](
		s.req.Post(ctx, PathAvatar, models.AvatarUpload{FilePath: filePath}),
	)
	if err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}

	if u := s.session.Identity(); u != nil && res.URL != "" {
		u.Avatar = res.URL
		s.session.SetIdentity(u)
	}
	return res.URL, nil
}
