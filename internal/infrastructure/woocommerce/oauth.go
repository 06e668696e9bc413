package woocommerce

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"math/big"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const nonceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Signer produces one-legged OAuth 1.0a HMAC-SHA1 signatures
type Signer struct {
	consumerKey    string
	consumerSecret string
	now            func() time.Time
	nonce          func() string
}

// NewSigner creates a signer using the wall clock and a random 32 character nonce
func NewSigner(consumerKey, consumerSecret string) *Signer {
	return &Signer{
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		now:            time.Now,
		nonce:          randomNonce,
	}
}

// Sign returns params extended with the oauth_* parameters and the signature.
// rawURL may carry a query string; it is ignored for the base string since the
// query parameters are expected in params.
func (s *Signer) Sign(method, rawURL string, params url.Values) url.Values {
	signed := url.Values{}
	for k, vs := range params {
		signed[k] = append([]string(nil), vs...)
	}
	signed.Set("oauth_consumer_key", s.consumerKey)
	signed.Set("oauth_nonce", s.nonce())
	signed.Set("oauth_signature_method", "HMAC-SHA1")
	signed.Set("oauth_timestamp", strconv.FormatInt(s.now().Unix(), 10))
	signed.Set("oauth_version", "1.0")

	base := SignatureBaseString(method, rawURL, signed)
	mac := hmac.New(sha1.New, []byte(PercentEncode(s.consumerSecret)+"&"))
	mac.Write([]byte(base))
	signed.Set("oauth_signature", base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	return signed
}

// SignatureBaseString builds METHOD&enc(url)&enc(normalized params)
func SignatureBaseString(method, rawURL string, params url.Values) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		rawURL = rawURL[:i]
	}
	return strings.ToUpper(method) + "&" + PercentEncode(rawURL) + "&" + PercentEncode(EncodeParams(params))
}

// EncodeParams percent-encodes and sorts params by encoded key, then value,
// joining them as k=v pairs with &
func EncodeParams(params url.Values) string {
	type pair struct{ k, v string }
	pairs := make([]pair, 0, len(params))
	for k, vs := range params {
		ek := PercentEncode(k)
		for _, v := range vs {
			pairs = append(pairs, pair{ek, PercentEncode(v)})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k != pairs[j].k {
			return pairs[i].k < pairs[j].k
		}
		return pairs[i].v < pairs[j].v
	})

	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.k)
		b.WriteByte('=')
		b.WriteString(p.v)
	}
	return b.String()
}

// PercentEncode encodes s per RFC 3986: only A-Z a-z 0-9 - . _ ~ pass through
func PercentEncode(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') ||
		c == '-' || c == '.' || c == '_' || c == '~'
}

func randomNonce() string {
	max := big.NewInt(int64(len(nonceAlphabet)))
	buf := make([]byte, 32)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand does not fail on supported platforms
			n = big.NewInt(time.Now().UnixNano() % int64(len(nonceAlphabet)))
		}
		buf[i] = nonceAlphabet[n.Int64()]
	}
	return string(buf)
}
