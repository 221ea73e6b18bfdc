package handler

import (
	"context"

	"github.com/hitoshi/moodmap/internal/auth"
	"github.com/hitoshi/moodmap/internal/geocode"
	"github.com/hitoshi/moodmap/internal/model"
	"github.com/hitoshi/moodmap/internal/mood"
	"github.com/hitoshi/moodmap/internal/user"
)

// AuthServiceAdapter は auth.Service を AuthServiceInterface に適合させるアダプタ。
type AuthServiceAdapter struct {
	svc *auth.Service
}

// NewAuthServiceAdapter はAuthServiceAdapterを生成する。
func NewAuthServiceAdapter(svc *auth.Service) *AuthServiceAdapter {
	return &AuthServiceAdapter{svc: svc}
}

// Register はユーザーを登録し、生成パスワード（指定時は空）と共に返す。
func (a *AuthServiceAdapter) Register(ctx context.Context, phone, password string) (*model.User, string, error) {
	result, err := a.svc.Register(ctx, phone, password)
	if err != nil {
		return nil, "", err
	}
	return result.User, result.GeneratedPassword, nil
}

// Login はログインしてセッションを発行する。
func (a *AuthServiceAdapter) Login(ctx context.Context, phone, password string) (*model.User, *model.Session, error) {
	return a.svc.Login(ctx, phone, password)
}

// Logout はセッションを破棄する。
func (a *AuthServiceAdapter) Logout(ctx context.Context, sessionID string) error {
	return a.svc.Logout(ctx, sessionID)
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
func (a *AuthServiceAdapter) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	return a.svc.GetCurrentUser(ctx, sessionID)
}

// --- compile-time interface checks ---

var _ AuthServiceInterface = (*AuthServiceAdapter)(nil)
var _ MoodServiceInterface = (*mood.Service)(nil)
var _ UserServiceInterface = (*user.Service)(nil)
var _ ReverseGeocoder = (*geocode.Client)(nil)
