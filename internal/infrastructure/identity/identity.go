// Package identity 校验外部身份令牌并得到会话所有者。
// 登录、注册、找回密码由身份提供方自行处理，这里只做令牌校验与显示名更新。
package identity

import (
	"context"
	"errors"
	"strings"

	"hakawati-story-api/internal/domain/entity"
)

// RoleAdmin 管理员角色声明
const RoleAdmin = "admin"

var (
	ErrTokenInvalid = errors.New("identity token invalid")
	ErrTokenExpired = errors.New("identity token expired")
)

// Verifier 令牌校验
type Verifier interface {
	Verify(ctx context.Context, token string) (*entity.Owner, error)
}

// adminSet 额外授予管理员的邮箱（不区分大小写）
type adminSet map[string]struct{}

func newAdminSet(emails []string) adminSet {
	set := make(adminSet, len(emails))
	for _, e := range emails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			set[e] = struct{}{}
		}
	}
	return set
}

func (s adminSet) has(email string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(email))]
	return ok
}
