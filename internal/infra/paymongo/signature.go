package paymongo

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// VerifySignature checks a Paymongo-Signature header of the form
// "t=<unix>,te=<hex>,li=<hex>". The signed payload is "<t>.<body>"; either the
// test-mode or live-mode digest may match.
func VerifySignature(header string, body []byte, secret string) error {
	var ts, test, live string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "te":
			test = v
		case "li":
			live = v
		}
	}
	if ts == "" || (test == "" && live == "") {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := mac.Sum(nil)

	for _, candidate := range []string{test, live} {
		if candidate == "" {
			continue
		}
		got, err := hex.DecodeString(candidate)
		if err == nil && hmac.Equal(got, expected) {
			return nil
		}
	}
	return ErrInvalidSignature
}

// Sign produces a Paymongo-Signature header value for body.
func Sign(ts string, body []byte, secret string, live bool) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts + "."))
	mac.Write(body)
	digest := hex.EncodeToString(mac.Sum(nil))
	if live {
		return "t=" + ts + ",te=,li=" + digest
	}
	return "t=" + ts + ",te=" + digest + ",li="
}
