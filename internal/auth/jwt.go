package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidOrExpiredToken 令牌签名无效、格式错误或已过期
var ErrInvalidOrExpiredToken = errors.New("auth: invalid or expired token")

// TokenType 登录响应中的令牌类型
const TokenType = "bearer"

// JWTService 访问令牌签发与校验，无状态、不落库
type JWTService struct {
	secretKey []byte
	method    jwt.SigningMethod
	issuer    string
	expiry    time.Duration
	now       func() time.Time
}

// NewJWTService 创建 JWT 服务，algorithm 支持 HS256/HS384/HS512
func NewJWTService(secretKey, algorithm, issuer string, expiry time.Duration) (*JWTService, error) {
	method, err := hmacMethod(algorithm)
	if err != nil {
		return nil, err
	}
	if expiry <= 0 {
		expiry = 30 * time.Minute
	}
	return &JWTService{
		secretKey: []byte(secretKey),
		method:    method,
		issuer:    issuer,
		expiry:    expiry,
		now:       time.Now,
	}, nil
}

func hmacMethod(algorithm string) (jwt.SigningMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(algorithm)) {
	case "", "HS256":
		return jwt.SigningMethodHS256, nil
	case "HS384":
		return jwt.SigningMethodHS384, nil
	case "HS512":
		return jwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("不支持的签名算法: %s", algorithm)
	}
}

// CreateToken 签发 sub=username 的访问令牌
func (s *JWTService) CreateToken(username string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
	}

	token := jwt.NewWithClaims(s.method, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("签名令牌失败: %w", err)
	}
	return tokenString, nil
}

// Verify 校验令牌并返回 subject
func (s *JWTService) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		// 只接受配置的 HMAC 算法
		if token.Method.Alg() != s.method.Alg() {
			return nil, fmt.Errorf("无效的签名算法: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return "", ErrInvalidOrExpiredToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidOrExpiredToken
	}
	return claims.Subject, nil
}

// ExtractTokenFromBearer 从 Authorization 头提取令牌，scheme 大小写不敏感
func ExtractTokenFromBearer(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
