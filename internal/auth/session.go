// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// signKey and verifyKey hold the ed25519 pair backing session tokens.
var (
	signKey   ed25519.PrivateKey
	verifyKey ed25519.PublicKey

	// TOKEN_EXPIRE_TIME_SEC is how many seconds until JWT expiration (0 => never).
	TOKEN_EXPIRE_TIME_SEC int
)

func parseTokenExpireTime() {
	raw := os.Getenv("TOKEN_EXPIRE_TIME")
	switch raw {
	case "", "0", "never":
		TOKEN_EXPIRE_TIME_SEC = 0
	default:
		d, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatalf("failed to parse TOKEN_EXPIRE_TIME: %v", err)
		}
		TOKEN_EXPIRE_TIME_SEC = int(d.Seconds())
	}
}

// Init generates a fresh ed25519 key pair at runtime. Tokens do not survive a
// restart, which is acceptable because guests reauthenticate transparently.
func Init() {
	var err error
	verifyKey, signKey, err = ed25519.GenerateKey(nil)
	if err != nil {
		log.Fatalf("failed to generate ed25519 key pair: %v", err)
	}
	parseTokenExpireTime()
}

// InitFromPath loads a persisted ed25519 pair so tokens survive restarts.
func InitFromPath(privatePath, publicPath string) error {
	priv, err := os.ReadFile(privatePath)
	if err != nil {
		return fmt.Errorf("failed to read private key file: %w", err)
	}
	pub, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("failed to read public key file: %w", err)
	}
	signKey = ed25519.PrivateKey(priv)
	verifyKey = ed25519.PublicKey(pub)
	parseTokenExpireTime()
	return nil
}

// CreateJWT mints a signed token with "sub" = userID. No exp claim is set
// when TOKEN_EXPIRE_TIME_SEC is zero.
func CreateJWT(userID string) (string, error) {
	claims := jwt.MapClaims{"sub": userID}
	if TOKEN_EXPIRE_TIME_SEC > 0 {
		claims["exp"] = time.Now().Add(time.Duration(TOKEN_EXPIRE_TIME_SEC) * time.Second).Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(signKey)
}

// AuthenticateJWT verifies a token and returns its "sub" claim.
func AuthenticateJWT(tokenString string) (string, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return verifyKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid jwt claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return "", fmt.Errorf("missing sub in jwt")
	}
	return sub, nil
}
