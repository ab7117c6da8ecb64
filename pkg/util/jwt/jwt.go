package jwt

import (
	"errors"
	"time"

	"gated_chat_server/pkg/constants"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "gated_chat"

// Config 签名配置
type Config struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// 全局配置，由 Init 初始化
var jwtConfig *Config

// ErrNotInitialized Init 之前调用签发或解析
var ErrNotInitialized = errors.New("jwt: not initialized")

// Init 初始化 JWT 配置
func Init(secret string, accessExpiryMinutes int) {
	jwtConfig = &Config{
		Secret:            secret,
		AccessTokenExpiry: time.Duration(accessExpiryMinutes) * time.Minute,
	}
}

// Claims 自定义 JWT 声明，UserID 即 profile id
// Nickname 和 IsPrivate 由身份服务签发，连接时同步到本地 profile 镜像
type Claims struct {
	UserID    string `json:"user_id"`
	Nickname  string `json:"nickname,omitempty"`
	IsPrivate bool   `json:"is_private,omitempty"`
	TokenID   string `json:"token_id"`
	jwt.RegisteredClaims
}

// GenerateAccessToken 签发 Access Token
func GenerateAccessToken(userID string) (string, error) {
	return GenerateProfileToken(userID, "", false)
}

// GenerateProfileToken 签发携带 profile 属性的 Access Token
func GenerateProfileToken(userID, nickname string, isPrivate bool) (string, error) {
	if jwtConfig == nil {
		return "", ErrNotInitialized
	}
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		Nickname:  nickname,
		IsPrivate: isPrivate,
		TokenID:   uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(jwtConfig.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   constants.ACCESS_TOKEN_SUBJECT,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtConfig.Secret))
}

// ParseToken 解析并验证 Token
func ParseToken(tokenString string) (*Claims, error) {
	if jwtConfig == nil {
		return nil, ErrNotInitialized
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(jwtConfig.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}
