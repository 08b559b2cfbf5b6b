// Package marvel is a client for the Marvel Comics public REST gateway.
// It signs each request, pages through the comics and characters
// collections and maps vendor results into flat records with placeholder
// text for missing fields.
package marvel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultBaseURL = "https://gateway.marvel.com/v1/public"

type Credentials struct {
	PublicKey  string
	PrivateKey string
}

// Client is safe for concurrent use; it holds no state besides its
// configuration.
type Client struct {
	creds     Credentials
	baseURL   string
	http      *http.Client
	sentinels Sentinels
	now       func() time.Time
}

type Option func(*Client)

func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// WithHTTPClient replaces the transport, e.g. to add caching or timeouts.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithSentinels(s Sentinels) Option {
	return func(c *Client) {
		c.sentinels = s
	}
}

// New stores the key pair. It does no network I/O.
func New(publicKey string, privateKey string, opts ...Option) *Client {
	c := &Client{
		creds:     Credentials{PublicKey: publicKey, PrivateKey: privateKey},
		baseURL:   DefaultBaseURL,
		http:      &http.Client{Timeout: 10 * time.Second},
		sentinels: EnglishSentinels,
		now:       systemClock,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) FetchComics(ctx context.Context, page int, pageSize int) ([]ComicRecord, error) {
	q, err := NewPageQuery(page, pageSize)
	if err != nil {
		return nil, err
	}
	return c.FetchComicsAt(ctx, q)
}

func (c *Client) FetchComicsAt(ctx context.Context, q PageQuery) ([]ComicRecord, error) {
	if err := q.valid(); err != nil {
		return nil, err
	}
	results, err := get[comicResult](ctx, c, "comics", pageParams(q))
	if err != nil {
		return nil, err
	}
	comics := make([]ComicRecord, len(results))
	for i, r := range results {
		comics[i] = c.sentinels.comic(r)
	}
	return comics, nil
}

func (c *Client) FetchCharacters(ctx context.Context, page int, pageSize int) ([]CharacterRecord, error) {
	q, err := NewPageQuery(page, pageSize)
	if err != nil {
		return nil, err
	}
	return c.FetchCharactersAt(ctx, q)
}

func (c *Client) FetchCharactersAt(ctx context.Context, q PageQuery) ([]CharacterRecord, error) {
	if err := q.valid(); err != nil {
		return nil, err
	}
	results, err := get[characterResult](ctx, c, "characters", pageParams(q))
	if err != nil {
		return nil, err
	}
	return c.characters(results), nil
}

// SearchCharacterByName returns the first exact name match, or nil when the
// gateway has none.
func (c *Client) SearchCharacterByName(ctx context.Context, name string) (*CharacterRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: character name is blank", ErrInvalidInput)
	}
	params := url.Values{}
	params.Set("name", name)
	results, err := get[characterResult](ctx, c, "characters", params)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	first := c.sentinels.character(results[0])
	return &first, nil
}

func (c *Client) characters(results []characterResult) []CharacterRecord {
	out := make([]CharacterRecord, len(results))
	for i, r := range results {
		out[i] = c.sentinels.character(r)
	}
	return out
}

func pageParams(q PageQuery) url.Values {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("offset", strconv.Itoa(q.Offset))
	return params
}

func (c *Client) endpoint(collection string, params url.Values) string {
	sig := c.Sign()
	params.Set("apikey", c.creds.PublicKey)
	params.Set("ts", sig.Timestamp)
	params.Set("hash", sig.Digest)
	return c.baseURL + "/" + collection + "?" + params.Encode()
}

// get performs one signed GET and unwraps data.results. Nothing is
// returned alongside an error.
func get[T any](ctx context.Context, c *Client, collection string, params url.Values) ([]T, error) {
	getReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(collection, params), nil)
	if err != nil {
		return nil, connectionFailed(err, "failed to create request: %v", err)
	}
	getReq.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(getReq)
	if err != nil {
		return nil, connectionFailed(err, "%v", unwrapURLError(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, connectionFailed(err, "failed to read response: %v", err)
	}
	var data envelope[T]
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, connectionFailed(err, "malformed response (HTTP %d): %v", resp.StatusCode, err)
	}
	code, status, ok := data.code(resp.StatusCode)
	if !ok {
		return nil, connectionFailed(nil, "malformed response (HTTP %d): missing code", resp.StatusCode)
	}
	if code != http.StatusOK {
		return nil, &VendorError{Code: code, Status: status}
	}
	return data.Data.Results, nil
}

func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
