package marvel

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"time"
)

// Signature is the ts/hash pair the gateway requires on every request.
type Signature struct {
	Timestamp string
	Digest    string
}

// Digest returns md5(ts + privateKey + publicKey) as lowercase hex.
// The gateway rejects any other concatenation order.
func Digest(ts string, privateKey string, publicKey string) string {
	sum := md5.Sum([]byte(ts + privateKey + publicKey))
	return hex.EncodeToString(sum[:])
}

// Sign stamps a fresh signature with the current unix second.
func (c *Client) Sign() Signature {
	ts := strconv.FormatInt(c.now().Unix(), 10)
	return Signature{
		Timestamp: ts,
		Digest:    Digest(ts, c.creds.PrivateKey, c.creds.PublicKey),
	}
}

func systemClock() time.Time { return time.Now() }
