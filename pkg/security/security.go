package security

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
)

type TokenClaims struct {
	Appid      string            `json:"aid"`
	AppName    string            `json:"an"`
	User       string            `json:"u"`   // 对应平台的用户唯一标识
	Fields     map[string]string `json:"f"`   // unsafe
	ExpireTime int64             `json:"exp"` // 过期时间 时间戳
	NotBefore  int64             `json:"nbf"` // 生效时间 时间戳
}

func NewTokenClaims(appid, appName, userID string, expireTime int64) TokenClaims {
	return TokenClaims{
		Appid:      appid,
		AppName:    appName,
		User:       userID,
		Fields:     map[string]string{},
		ExpireTime: expireTime,
		NotBefore:  time.Now().Unix() - 1,
	}
}

func (t TokenClaims) GetUser() string {
	return t.User
}

func (t TokenClaims) Field(key string) string {
	if t.Fields == nil {
		return ""
	}

	return t.Fields[key]
}

func (t TokenClaims) mapClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"aid": t.Appid,
		"an":  t.AppName,
		"u":   t.User,
		"f":   t.Fields,
		"exp": t.ExpireTime,
		"nbf": t.NotBefore,
	}
}

func claimsFromMap(m jwt.MapClaims) *TokenClaims {
	res := &TokenClaims{Fields: map[string]string{}}
	res.Appid, _ = m["aid"].(string)
	res.AppName, _ = m["an"].(string)
	res.User, _ = m["u"].(string)
	// MapClaims 中的数字解析为 float64
	if v, ok := m["exp"].(float64); ok {
		res.ExpireTime = int64(v)
	}
	if v, ok := m["nbf"].(float64); ok {
		res.NotBefore = int64(v)
	}
	if fields, ok := m["f"].(map[string]interface{}); ok {
		for k, v := range fields {
			if s, ok := v.(string); ok {
				res.Fields[k] = s
			}
		}
	}
	return res
}

// GenerateJWT 使用 RS256 签发，signBytes 为 PEM 格式私钥
func GenerateJWT(info TokenClaims, signBytes []byte) (string, error) {
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(signBytes)
	if err != nil {
		return "", err
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, info.mapClaims()).SignedString(privateKey)
}

var (
	ErrInvalidJWT = errors.New("invalid token")
	ErrPublicKey  = errors.New("invalid public key")
)

func VerifyToken(tokenString string, key []byte) (*TokenClaims, error) {
	claims, err := ParseJWT(tokenString, key)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	if claims.ExpireTime < now || claims.NotBefore > now {
		return nil, fmt.Errorf("expired token, %w", ErrInvalidJWT)
	}

	return claims, nil
}

func ParseJWT(tokenString string, key []byte) (*TokenClaims, error) {
	publicKey, err := parsePublicKey(key)
	if err != nil {
		return nil, err
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v, %w", t.Header["alg"], ErrInvalidJWT)
		}
		return publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s, %w", err.Error(), ErrInvalidJWT)
	}

	m, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type, %w", ErrInvalidJWT)
	}
	return claimsFromMap(m), nil
}

func parsePublicKey(key []byte) (*rsa.PublicKey, error) {
	if len(key) == 0 {
		return nil, ErrPublicKey
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(key)
	if err != nil {
		return nil, fmt.Errorf("%s, %w", err.Error(), ErrPublicKey)
	}
	return publicKey, nil
}
