package identity

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"hakawati-story-api/internal/config"
	"hakawati-story-api/internal/domain/entity"
)

// FirebaseVerifier 使用 Firebase Admin SDK 校验 ID Token，并支持修改显示名
type FirebaseVerifier struct {
	client *auth.Client
	admins adminSet
}

// NewFirebaseVerifier 初始化 Firebase 应用；未提供凭据文件时使用默认凭据
func NewFirebaseVerifier(ctx context.Context, cfg config.IdentityConfig) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if path := strings.TrimSpace(cfg.Firebase.CredentialsFile); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}

	var fbCfg *firebase.Config
	if cfg.Firebase.ProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: cfg.Firebase.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth client: %w", err)
	}
	return &FirebaseVerifier{client: client, admins: newAdminSet(cfg.AdminEmails)}, nil
}

// Verify 实现 Verifier
func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*entity.Owner, error) {
	tok, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		if auth.IsIDTokenExpired(err) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	return ownerFromClaims(tok.UID, tok.Claims, v.admins), nil
}

// UpdateDisplayName 修改 Firebase 用户显示名
func (v *FirebaseVerifier) UpdateDisplayName(ctx context.Context, uid, name string) error {
	params := (&auth.UserToUpdate{}).DisplayName(name)
	if _, err := v.client.UpdateUser(ctx, uid, params); err != nil {
		return fmt.Errorf("update firebase display name: %w", err)
	}
	return nil
}

func ownerFromClaims(uid string, claims map[string]interface{}, admins adminSet) *entity.Owner {
	str := func(key string) string {
		s, _ := claims[key].(string)
		return s
	}
	owner := &entity.Owner{
		ID:          uid,
		Email:       str("email"),
		DisplayName: str("name"),
	}
	isAdmin, _ := claims["admin"].(bool)
	owner.Admin = isAdmin || str("role") == RoleAdmin || admins.has(owner.Email)
	return owner
}
