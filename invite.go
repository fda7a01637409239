package main

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/skip2/go-qrcode"
)

const (
	inviteExpiry = 24 * time.Hour
	qrSize       = 256
)

var ErrInvalidInvite = errors.New("invalid invite")

// Invites issues and checks signed room invite tokens. An invite only names a
// room; it does not identify or authenticate the holder.
type Invites struct {
	secret    []byte
	publicURL string
	now       func() time.Time
}

type inviteClaims struct {
	Room string `json:"room"`
	jwt.RegisteredClaims
}

// NewInvites creates an issuer. An empty secret gets a random per-process one,
// so tokens stop validating after a restart.
func NewInvites(secret, publicURL string) (*Invites, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate invite secret: %w", err)
		}
	}
	return &Invites{
		secret:    key,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       time.Now,
	}, nil
}

// Issue returns a signed token for the room
func (iv *Invites) Issue(room string) (string, error) {
	now := iv.now()
	claims := inviteClaims{
		Room: NormalizeRoomCode(room),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(inviteExpiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(iv.secret)
}

// Resolve validates a token and returns the room it names
func (iv *Invites) Resolve(tokenStr string) (string, error) {
	claims := &inviteClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return iv.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(iv.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInvite, err)
	}
	if !token.Valid || claims.Room == "" {
		return "", ErrInvalidInvite
	}
	return NormalizeRoomCode(claims.Room), nil
}

// Link builds the shareable URL for a room invite. base is used when no
// public URL was configured.
func (iv *Invites) Link(base, room, token string) string {
	if iv.publicURL != "" {
		base = iv.publicURL
	}
	q := url.Values{}
	q.Set("room", room)
	q.Set("invite", token)
	return strings.TrimRight(base, "/") + "/?" + q.Encode()
}

// QRCode renders link as a PNG
func (iv *Invites) QRCode(link string) ([]byte, error) {
	return qrcode.Encode(link, qrcode.Medium, qrSize)
}
