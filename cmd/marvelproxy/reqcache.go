package main

import (
	"bufio"
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"log"
	"net/http"
	"net/http/httputil"
	"os"
	"time"
)

// ReqCache is an http.RoundTripper that keeps successful gateway responses
// in the Store. Signing parameters change on every call, so they are left
// out of the cache key.
type ReqCache struct {
	store *Store
	next  http.RoundTripper
	ttl   time.Duration
	log   *log.Logger
	now   func() time.Time
}

var signingParams = []string{"ts", "hash", "apikey"}

func NewReqCache(store *Store, next http.RoundTripper, ttl time.Duration) *ReqCache {
	if next == nil {
		next = http.DefaultTransport
	}
	return &ReqCache{
		store: store,
		next:  next,
		ttl:   ttl,
		log:   log.New(os.Stderr, "(cache) ", log.LstdFlags),
		now:   time.Now,
	}
}

// purgeExpired deletes stale rows every interval until ctx is done.
func (rc *ReqCache) purgeExpired(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		if n := rc.store.DeleteBefore(rc.now().Unix()); n > 0 {
			rc.log.Println("Purged", n, "expired responses")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func cacheKey(req *http.Request) string {
	u := *req.URL
	q := u.Query()
	for _, p := range signingParams {
		q.Del(p)
	}
	u.RawQuery = q.Encode()
	sum := md5.Sum([]byte(req.Method + " " + u.String()))
	return hex.EncodeToString(sum[:])
}

func (rc *ReqCache) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return rc.next.RoundTrip(req)
	}
	reqHash := cacheKey(req)
	data, ok := rc.store.GetResponse(reqHash, rc.now().Unix())
	if ok {
		res, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(data)), req)
		if err == nil {
			return res, nil
		}
		rc.log.Println("Problems decoding cached result", err.Error())
	}

	resp, err := rc.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}
	respBytes, err := httputil.DumpResponse(resp, true)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}
	resp.Body.Close()
	rc.log.Println("MISS", req.URL.Path)
	rc.store.StoreResponse(reqHash, respBytes, rc.now().Add(rc.ttl).Unix())
	return http.ReadResponse(bufio.NewReader(bytes.NewReader(respBytes)), req)
}
