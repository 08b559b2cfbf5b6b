package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/andybalholm/brotli"

	"github.com/moddengine/marvel"
)

// maxSpan caps how many records one proxy page may ask for.
const maxSpan = 1000

type Server struct {
	client *marvel.Client
	store  *Store
	cfg    *Config
	log    *log.Logger
	text   marvel.TextRenderer
}

func NewServer(cfg *Config, client *marvel.Client, store *Store) *Server {
	return &Server{
		client: client,
		store:  store,
		cfg:    cfg,
		log:    log.New(os.Stderr, "(http) ", log.LstdFlags),
		text:   marvel.TextRenderer{ImageVariant: marvel.PortraitIncredible},
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, "Not Found")
	})
	mux.HandleFunc("/comics", s.handleComics)
	mux.HandleFunc("/characters", s.handleCharacters)
	mux.HandleFunc("/character", s.handleCharacter)
	if s.cfg.Server.RequireAuth {
		return s.requireUser(mux)
	}
	return mux
}

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || !s.store.TestUser(user, pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="marvelproxy"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleComics(w http.ResponseWriter, r *http.Request) {
	var comics []marvel.ComicRecord
	page, size, err := s.paging(r)
	if err == nil {
		comics, err = fetchSpan(r.Context(), page, size, s.client.FetchComicsAt)
	}
	s.respond(w, r, err, comics, func(out io.Writer) error {
		return s.text.RenderComics(out, comics)
	})
}

func (s *Server) handleCharacters(w http.ResponseWriter, r *http.Request) {
	var characters []marvel.CharacterRecord
	page, size, err := s.paging(r)
	if err == nil {
		characters, err = fetchSpan(r.Context(), page, size, s.client.FetchCharactersAt)
	}
	s.respond(w, r, err, characters, func(out io.Writer) error {
		return s.text.RenderCharacters(out, characters)
	})
}

func (s *Server) handleCharacter(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	character, err := s.client.SearchCharacterByName(r.Context(), name)
	if err == nil && character == nil {
		err = &notFoundError{name: name}
	}
	s.respond(w, r, err, character, func(out io.Writer) error {
		return s.text.RenderCharacters(out, []marvel.CharacterRecord{*character})
	})
}

// paging reads page and size, falling back to page 1 and the configured
// size when a value does not parse. Parsed values are passed through so the
// client can reject them; numbers too large for an int are rejected here.
func (s *Server) paging(r *http.Request) (int, int, error) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		return 0, 0, err
	}
	size, err := queryInt(r, "size", s.cfg.Server.PageSize)
	if err != nil {
		return 0, 0, err
	}
	return page, size, nil
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	n, err := strconv.ParseInt(r.URL.Query().Get(key), 10, 0)
	switch {
	case err == nil:
		return int(n), nil
	case errors.Is(err, strconv.ErrRange):
		return 0, fmt.Errorf("%w: %s is out of range", marvel.ErrInvalidInput, key)
	default:
		return fallback, nil
	}
}

type spanResult[T any] struct {
	Num   int
	Items []T
	Err   error
}

// fetchSpan loads one proxy page, fanning out over several gateway requests
// when it is larger than marvel.MaxLimit. Any failed part fails the span.
func fetchSpan[T any](ctx context.Context, page int, size int, fetch func(context.Context, marvel.PageQuery) ([]T, error)) ([]T, error) {
	if size > maxSpan {
		return nil, fmt.Errorf("%w: page size %d exceeds %d", marvel.ErrInvalidInput, size, maxSpan)
	}
	queries, err := marvel.SplitPages(page, size, marvel.MaxLimit)
	if err != nil {
		return nil, err
	}
	if len(queries) == 1 {
		return fetch(ctx, queries[0])
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	chRes := make(chan spanResult[T], len(queries))
	for num, q := range queries {
		num, q := num, q
		go func() {
			items, err := fetch(ctx, q)
			chRes <- spanResult[T]{Num: num, Items: items, Err: err}
		}()
	}

	parts := make([][]T, len(queries))
	var firstErr error
	for range queries {
		res := <-chRes
		if res.Err != nil {
			if firstErr == nil {
				firstErr = res.Err
				cancel()
			}
			continue
		}
		parts[res.Num] = res.Items
	}
	if firstErr != nil {
		return nil, firstErr
	}
	results := make([]T, 0, size)
	for _, part := range parts {
		results = append(results, part...)
	}
	return results, nil
}

type notFoundError struct {
	name string
}

func (e *notFoundError) Error() string {
	return fmt.Sprintf("no character named %q", e.name)
}

type errorReply struct {
	Error string `json:"error"`
	Code  int    `json:"code,omitempty"`
}

func statusFor(err error) (int, errorReply) {
	var vendorErr *marvel.VendorError
	var connErr *marvel.ConnectionError
	var notFound *notFoundError
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound, errorReply{Error: notFound.Error()}
	case errors.Is(err, marvel.ErrInvalidInput):
		return http.StatusBadRequest, errorReply{Error: err.Error()}
	case errors.As(err, &vendorErr):
		return http.StatusBadGateway, errorReply{Error: vendorErr.Error(), Code: vendorErr.Code}
	case errors.As(err, &connErr):
		return http.StatusServiceUnavailable, errorReply{Error: connErr.Message}
	default:
		return http.StatusInternalServerError, errorReply{Error: err.Error()}
	}
}

func wantsText(r *http.Request) bool {
	return r.URL.Query().Get("format") == "text"
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, err error, v any, renderText func(io.Writer) error) {
	if wantsText(r) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	body := brotli.HTTPCompressor(w, r)
	defer body.Close()

	if err != nil {
		status, reply := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.log.Println(r.URL.Path, "failed:", err)
		}
		w.WriteHeader(status)
		if wantsText(r) {
			s.text.RenderError(body, err)
			return
		}
		s.encode(body, reply)
		return
	}

	if wantsText(r) {
		if err := renderText(body); err != nil {
			s.log.Println("Failed to write response", err)
		}
		return
	}
	s.encode(body, v)
}

func (s *Server) encode(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	indent := ""
	if s.cfg.Debug.PrettyJson {
		indent = "  "
	}
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		s.log.Println("Failed to encode response", err)
	}
}
