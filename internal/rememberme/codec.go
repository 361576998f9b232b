// Package rememberme implements the signed remember-me cookie: the value
// codec and the service that issues, reads and cancels the cookie.
package rememberme

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

const delimiter = ":"

// ErrInvalidCookie is the only error Decode returns. Callers never get
// partial data from a bad cookie.
var ErrInvalidCookie = errors.New("rememberme: invalid cookie")

var b64 = base64.StdEncoding.Strict()

// Encode builds base64(base64(username):expires:hex(HMAC-SHA256(username||expires))).
func Encode(username string, expires int64, secret string) string {
	exp := strconv.FormatInt(expires, 10)
	raw := strings.Join([]string{
		b64.EncodeToString([]byte(username)),
		exp,
		sign(username, exp, secret),
	}, delimiter)
	return b64.EncodeToString([]byte(raw))
}

// Decode validates value and returns its username and expiry (unix seconds).
// The cookie is valid while now <= expires.
func Decode(value, secret string, now time.Time) (string, int64, error) {
	raw, err := b64.DecodeString(value)
	if err != nil {
		return "", 0, ErrInvalidCookie
	}

	parts := strings.Split(string(raw), delimiter)
	if len(parts) != 3 {
		return "", 0, ErrInvalidCookie
	}

	user, err := b64.DecodeString(parts[0])
	if err != nil || len(user) == 0 {
		return "", 0, ErrInvalidCookie
	}
	username := string(user)

	expires, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || strconv.FormatInt(expires, 10) != parts[1] {
		return "", 0, ErrInvalidCookie
	}
	if now.Unix() > expires {
		return "", 0, ErrInvalidCookie
	}

	want := sign(username, parts[1], secret)
	if !hmac.Equal([]byte(parts[2]), []byte(want)) {
		return "", 0, ErrInvalidCookie
	}
	return username, expires, nil
}

func sign(username, expires, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(username + expires))
	return hex.EncodeToString(mac.Sum(nil))
}
