// Package identity 外部身份服务的本地适配：token 校验与关注关系查询
package identity

import (
	"context"
	"strings"

	"gated_chat_server/internal/dao/mysql/repository"
	"gated_chat_server/internal/model"
	"gated_chat_server/pkg/errorx"
	"gated_chat_server/pkg/util/jwt"

	"go.uber.org/zap"
)

// TokenVerifier 校验 token 并返回对应的 profile
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*model.Profile, error)
}

// Verifier 基于 JWT 的 token 校验，校验通过后同步 profile 镜像
type Verifier struct {
	profiles repository.ProfileRepository
	lg       *zap.Logger
}

// NewVerifier 创建校验器
func NewVerifier(profiles repository.ProfileRepository, lg *zap.Logger) *Verifier {
	return &Verifier{profiles: profiles, lg: lg}
}

// Verify 失败统一返回 CodeUnauthorized
func (v *Verifier) Verify(ctx context.Context, token string) (*model.Profile, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return nil, errorx.New(errorx.CodeUnauthorized, "token is empty")
	}
	claims, err := jwt.ParseToken(token)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeUnauthorized, "invalid token")
	}
	if claims.UserID == "" {
		return nil, errorx.New(errorx.CodeUnauthorized, "token has no profile id")
	}

	profile := &model.Profile{
		Uuid:      claims.UserID,
		Nickname:  claims.Nickname,
		IsPrivate: claims.IsPrivate,
	}
	if err := v.profiles.Upsert(ctx, profile); err != nil {
		v.lg.Error("sync profile mirror failed", zap.String("profile", claims.UserID), zap.Error(err))
		return nil, err
	}
	return profile, nil
}

var _ TokenVerifier = (*Verifier)(nil)
