package identity

import (
	"context"
	"errors"

	"hakawati-story-api/internal/domain/entity"
	"hakawati-story-api/pkg/utils"
)

// JWTVerifier 校验本服务签发的 HS256 令牌
type JWTVerifier struct {
	manager *utils.JWTManager
	admins  adminSet
}

// NewJWTVerifier 创建 JWT 校验器
func NewJWTVerifier(secret, issuer string, adminEmails []string) *JWTVerifier {
	return &JWTVerifier{
		manager: utils.NewJWTManager(secret, issuer),
		admins:  newAdminSet(adminEmails),
	}
}

// Verify 实现 Verifier
func (v *JWTVerifier) Verify(_ context.Context, token string) (*entity.Owner, error) {
	claims, err := v.manager.ParseToken(token)
	if err != nil {
		if errors.Is(err, utils.ErrExpiredToken) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	return &entity.Owner{
		ID:          claims.UserID,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
		Admin:       claims.Role == RoleAdmin || v.admins.has(claims.Email),
	}, nil
}
