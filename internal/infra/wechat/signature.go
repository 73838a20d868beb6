package wechat

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"sort"
)

// Signature computes the standard WeChat signature of token, timestamp and nonce
func Signature(token, timestamp, nonce string) string {
	items := []string{token, timestamp, nonce}
	sort.Strings(items)
	h := sha1.New()
	_, _ = io.WriteString(h, items[0]+items[1]+items[2])
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySignature validates the signature WeChat attaches to webhook requests.
// It never panics; a missing token or a malformed signature fails.
func VerifySignature(signature, token, timestamp, nonce string) bool {
	if token == "" || len(signature) != sha1.Size*2 {
		return false
	}
	calc := Signature(token, timestamp, nonce)
	return subtle.ConstantTimeCompare([]byte(calc), []byte(signature)) == 1
}
