package auth // import "github.com/johnyfernandes/shlf-sync/api/auth"

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/johnyfernandes/shlf-sync/model"
	"github.com/pkg/errors"
)

const (
	Issuer = "shlf-sync"
	KeyID  = "v1"

	// PeerTokenDuration bounds how long a single peer token stays valid.
	// Tokens are cheap to mint, the sender attaches a fresh one per request.
	PeerTokenDuration = 5 * time.Minute
)

// ClaimsMessage carries the sending device tag alongside the registered claims.
type ClaimsMessage struct {
	Device string `json:"device"`
	jwt.RegisteredClaims
}

// GeneratePeerToken signs a short-lived token identifying the sending device.
// Both daemons share the pairing secret, so either side can validate.
func GeneratePeerToken(device model.DeviceTag, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &ClaimsMessage{
		Device: string(device),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   string(device),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(PeerTokenDuration)),
		},
	})
	token.Header["kid"] = KeyID

	return token.SignedString(secret)
}

// ValidatePeerToken checks the signature and expiry and returns the peer's
// device tag.
func ValidatePeerToken(accessToken string, secret []byte) (model.DeviceTag, error) {
	claims := &ClaimsMessage{}
	_, err := jwt.ParseWithClaims(accessToken, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Name {
			return nil, errors.New("unexpected signing method")
		}
		if kid, ok := t.Header["kid"].(string); !ok || kid != KeyID {
			return nil, errors.New("unexpected key id")
		}
		return secret, nil
	})
	if err != nil {
		return "", errors.New("invalid or expired peer token")
	}

	device := model.DeviceTag(claims.Device)
	if !device.Valid() {
		return "", errors.Errorf("unknown device tag: %s", claims.Device)
	}
	return device, nil
}
