package testutil

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// SignAssertion builds a query-string assertion over fields and appends the
// hash a provider holding botToken would produce.
func SignAssertion(botToken string, fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	parts := make([]string, 0, len(keys)+1)
	for i, k := range keys {
		lines[i] = k + "=" + fields[k]
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(fields[k]))
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))

	parts = append(parts, "hash="+hex.EncodeToString(mac.Sum(nil)))
	return strings.Join(parts, "&")
}

// UserFields returns assertion fields for a user with the given id and first name
func UserFields(id int64, firstName string) map[string]string {
	return map[string]string{
		"auth_date": "1704110400",
		"query_id":  "AAH-test",
		"user":      `{"id":` + strconv.FormatInt(id, 10) + `,"first_name":"` + firstName + `"}`,
	}
}
