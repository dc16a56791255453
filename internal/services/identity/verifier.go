// Package identity verifies signed identity assertions issued by the
// chat platform's web-app SDK.
package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strings"

	"github.com/mcoot/geoguess/internal/model"
)

// secretKeyLabel is the fixed HMAC key the provider uses to derive the
// signing key from the bot token.
const secretKeyLabel = "WebAppData"

const (
	hashField = "hash"
	userField = "user"
)

// Verifier checks assertion signatures against a configured bot token.
// It holds no mutable state and is safe for concurrent use.
type Verifier struct {
	secretKey []byte
}

// NewVerifier derives the signing key for botToken
func NewVerifier(botToken string) *Verifier {
	mac := hmac.New(sha256.New, []byte(secretKeyLabel))
	mac.Write([]byte(botToken))
	return &Verifier{secretKey: mac.Sum(nil)}
}

type field struct {
	key   string
	value string
}

// userPayload is the JSON shape of the assertion's user field
type userPayload struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	PhotoURL  string `json:"photo_url"`
}

// Verify validates the assertion and returns the identity embedded in it.
// The user field is only decoded after the signature has been checked.
func (v *Verifier) Verify(assertion string) (*model.VerifiedIdentity, error) {
	fields, err := parse(assertion)
	if err != nil {
		return nil, err
	}

	var providedHash string
	var hasHash bool
	signed := make([]field, 0, len(fields))
	for _, f := range fields {
		if f.key == hashField {
			providedHash, hasHash = f.value, true
			continue
		}
		signed = append(signed, f)
	}
	if !hasHash {
		return nil, model.ErrMissingSignature
	}

	if !v.signatureMatches(dataCheckString(signed), providedHash) {
		return nil, model.ErrSignatureMismatch
	}

	for _, f := range signed {
		if f.key == userField {
			return decodeUser(f.value)
		}
	}
	return nil, model.ErrMalformedUserPayload
}

// parse splits a query-string payload into fields, percent-decoding keys and
// values. When a key repeats, the first occurrence wins.
func parse(assertion string) ([]field, error) {
	if assertion == "" {
		return nil, model.ErrMalformedAssertion
	}

	seen := make(map[string]bool)
	var fields []field
	for _, segment := range strings.Split(assertion, "&") {
		if segment == "" {
			continue
		}
		rawKey, rawValue, ok := strings.Cut(segment, "=")
		if !ok {
			return nil, model.ErrMalformedAssertion
		}
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, model.ErrMalformedAssertion
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, model.ErrMalformedAssertion
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		fields = append(fields, field{key: key, value: value})
	}

	if len(fields) == 0 {
		return nil, model.ErrMalformedAssertion
	}
	return fields, nil
}

// dataCheckString sorts fields by key and joins them as key=value lines
func dataCheckString(fields []field) string {
	sorted := make([]field, len(fields))
	copy(sorted, fields)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].key < sorted[j].key
	})

	lines := make([]string, len(sorted))
	for i, f := range sorted {
		lines[i] = f.key + "=" + f.value
	}
	return strings.Join(lines, "\n")
}

func (v *Verifier) signatureMatches(data, providedHash string) bool {
	provided, err := hex.DecodeString(providedHash)
	if err != nil || len(provided) != sha256.Size {
		return false
	}

	mac := hmac.New(sha256.New, v.secretKey)
	mac.Write([]byte(data))
	return hmac.Equal(mac.Sum(nil), provided)
}

func decodeUser(raw string) (*model.VerifiedIdentity, error) {
	var user userPayload
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, model.ErrMalformedUserPayload
	}
	if user.ID == 0 || user.FirstName == "" {
		return nil, model.ErrMalformedUserPayload
	}

	return &model.VerifiedIdentity{
		ExternalID:    model.ExternalID(user.ID),
		DisplayName:   user.FirstName,
		SecondaryName: user.LastName,
		Handle:        user.Username,
		AvatarURL:     user.PhotoURL,
	}, nil
}
