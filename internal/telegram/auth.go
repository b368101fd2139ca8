package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MaxInitDataAge bounds how old auth_date may be before init data is refused.
const MaxInitDataAge = time.Hour

// clock skew tolerated for auth_date in the future
const maxFutureSkew = 5 * time.Minute

var (
	ErrMissingHash = errors.New("init data: hash missing")
	ErrBadHash     = errors.New("init data: hash mismatch")
	ErrStale       = errors.New("init data: auth_date out of range")
	ErrNoUser      = errors.New("init data: user missing")
)

// ValidateInitData verifies the WebApp init_data signature made with botToken
// and that auth_date is recent relative to now.
func ValidateInitData(initData, botToken string, now time.Time) (url.Values, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, err
	}

	hash := values.Get("hash")
	if hash == "" {
		return nil, ErrMissingHash
	}
	values.Del("hash")

	provided, err := hex.DecodeString(hash)
	if err != nil {
		return nil, ErrBadHash
	}
	if !hmac.Equal(Sign(values, botToken), provided) {
		return nil, ErrBadHash
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, ErrStale
	}
	age := now.Sub(time.Unix(authDate, 0))
	if age > MaxInitDataAge || age < -maxFutureSkew {
		return nil, ErrStale
	}

	return values, nil
}

// Sign computes the init_data hash over values (hash field excluded).
// secret_key = HMAC_SHA256("WebAppData", bot_token)
func Sign(values url.Values, botToken string) []byte {
	pairs := make([]string, 0, len(values))
	for k, v := range values {
		if k == "hash" {
			continue
		}
		pairs = append(pairs, k+"="+strings.Join(v, ""))
	}
	sort.Strings(pairs)

	key := hmac.New(sha256.New, []byte("WebAppData"))
	key.Write([]byte(botToken))

	h := hmac.New(sha256.New, key.Sum(nil))
	h.Write([]byte(strings.Join(pairs, "\n")))
	return h.Sum(nil)
}
