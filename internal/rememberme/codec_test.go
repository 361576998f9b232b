package rememberme

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "s3cr3t-signature"

var now = time.Unix(1700000000, 0).UTC()

func TestRoundTrip(t *testing.T) {
	for _, u := range []string{"john", "j", "john.doe@example.com", "ñandú", "a:b:c", "with space"} {
		exp := now.Add(14 * 24 * time.Hour).Unix()
		v := Encode(u, exp, secret)

		gotUser, gotExp, err := Decode(v, secret, now)
		require.NoError(t, err, u)
		assert.Equal(t, u, gotUser)
		assert.Equal(t, exp, gotExp)
	}
}

func TestDecode_AtExpiryStillValid(t *testing.T) {
	v := Encode("john", now.Unix(), secret)
	_, _, err := Decode(v, secret, now)
	require.NoError(t, err)
}

func TestDecode_Expired(t *testing.T) {
	v := Encode("john", now.Unix()-1, secret)
	_, _, err := Decode(v, secret, now)
	require.ErrorIs(t, err, ErrInvalidCookie)
}

func TestDecode_WrongSecret(t *testing.T) {
	v := Encode("john", now.Unix()+60, secret)
	u, exp, err := Decode(v, "other", now)
	require.ErrorIs(t, err, ErrInvalidCookie)
	assert.Empty(t, u)
	assert.Zero(t, exp)
}

func TestDecode_AnySingleByteFlipIsInvalid(t *testing.T) {
	v := Encode("john.doe", now.Unix()+3600, secret)

	for i := 0; i < len(v); i++ {
		for _, mask := range []byte{0x01, 0x20, 0x80} {
			b := []byte(v)
			b[i] ^= mask
			u, exp, err := Decode(string(b), secret, now)
			require.ErrorIs(t, err, ErrInvalidCookie, "byte %d mask %#x", i, mask)
			require.Empty(t, u)
			require.Zero(t, exp)
		}
	}
}

func TestDecode_TamperedInnerParts(t *testing.T) {
	exp := now.Unix() + 3600
	good := Encode("john", exp, secret)
	raw, err := base64.StdEncoding.DecodeString(good)
	require.NoError(t, err)
	parts := strings.Split(string(raw), ":")
	require.Len(t, parts, 3)

	enc := func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

	cases := map[string]string{
		"other user same hash": enc(strings.Join([]string{enc("admin"), parts[1], parts[2]}, ":")),
		"later expiry":         enc(strings.Join([]string{parts[0], "9999999999", parts[2]}, ":")),
		"plus signed expiry":   enc(strings.Join([]string{parts[0], "+" + parts[1], parts[2]}, ":")),
		"uppercase hash":       enc(strings.Join([]string{parts[0], parts[1], strings.ToUpper(parts[2])}, ":")),
		"two parts":            enc(parts[0] + ":" + parts[1]),
		"four parts":           enc(string(raw) + ":x"),
		"empty username":       enc(strings.Join([]string{"", parts[1], sign("", parts[1], secret)}, ":")),
		"username not base64":  enc(strings.Join([]string{"%%%", parts[1], parts[2]}, ":")),
		"expiry not numeric":   enc(strings.Join([]string{parts[0], "soon", parts[2]}, ":")),
		"outer not base64":     "***",
		"empty":                "",
	}
	for name, v := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := Decode(v, secret, now)
			require.ErrorIs(t, err, ErrInvalidCookie)
		})
	}
}

func TestEncode_Format(t *testing.T) {
	v := Encode("john", 1700000000, "k")
	raw, err := base64.StdEncoding.DecodeString(v)
	require.NoError(t, err)
	parts := strings.Split(string(raw), ":")
	require.Len(t, parts, 3)
	assert.Equal(t, "am9obg==", parts[0])
	assert.Equal(t, "1700000000", parts[1])
	assert.Len(t, parts[2], 64)
	assert.Equal(t, sign("john", "1700000000", "k"), parts[2])
}
