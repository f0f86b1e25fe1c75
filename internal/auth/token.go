// internal/auth/token.go
package auth

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "logiverse"

var (
	signKey   ed25519.PrivateKey
	verifyKey ed25519.PublicKey

	// TokenTTLSeconds is how long issued tokens stay valid; zero means no
	// expiry claim, which guest sessions rely on.
	TokenTTLSeconds int
)

// Init generates a process-local ed25519 key pair and reads the token
// lifetime from TOKEN_EXPIRE_TIME. Keys do not survive a restart: every
// outstanding token is invalidated and guests simply get a fresh identity
// on their next connect.
func Init() {
	var err error
	verifyKey, signKey, err = ed25519.GenerateKey(nil)
	if err != nil {
		fmt.Printf("failed to generate ed25519 key pair: %v\n", err)
		os.Exit(1)
	}
	TokenTTLSeconds = parseTokenTTL(os.Getenv("TOKEN_EXPIRE_TIME"))
}

func parseTokenTTL(raw string) int {
	switch raw {
	case "", "0", "never":
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		fmt.Printf("failed to parse TOKEN_EXPIRE_TIME: %v\n", err)
		os.Exit(1)
	}
	return int(d.Seconds())
}

// CreateJWT issues a signed token carrying the user id as "sub".
func CreateJWT(userID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"iss": issuer,
	}
	if TokenTTLSeconds > 0 {
		claims["exp"] = time.Now().Add(time.Duration(TokenTTLSeconds) * time.Second).Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(signKey)
}

// AuthenticateJWT verifies a token and returns the user id it carries.
func AuthenticateJWT(tokenString string) (string, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return verifyKey, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return "", fmt.Errorf("verify token: %w", err)
	}

	sub, err := t.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}
