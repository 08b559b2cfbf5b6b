package marvel

import (
	"encoding/json"
	"strconv"
)

type ComicRecord struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	ISBN        string   `json:"isbn"`
	Description string   `json:"description"`
	Characters  []string `json:"characters"`
	Creators    []string `json:"creators"`
}

type CharacterRecord struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Creators    []string   `json:"creators"`
	Comics      []string   `json:"comics"`
	Events      []string   `json:"events"`
	Thumbnail   *Thumbnail `json:"thumbnail,omitempty"`
}

// Thumbnail image variants served by the gateway's image CDN.
const (
	PortraitSmall      = "portrait_small"
	PortraitMedium     = "portrait_medium"
	PortraitXLarge     = "portrait_xlarge"
	PortraitFantastic  = "portrait_fantastic"
	PortraitUncanny    = "portrait_uncanny"
	PortraitIncredible = "portrait_incredible"
	StandardLarge      = "standard_large"
	StandardFantastic  = "standard_fantastic"
	Detail             = "detail"
)

type Thumbnail struct {
	Path      string `json:"path"`
	Extension string `json:"extension"`
}

func (t Thumbnail) URL(variant string) string {
	return t.Path + "/" + variant + "." + t.Extension
}

type resourceSummary struct {
	ResourceURI string `json:"resourceURI"`
	Name        string `json:"name"`
}

type resourceList struct {
	Available int               `json:"available"`
	Items     []resourceSummary `json:"items"`
}

type comicResult struct {
	Id          int           `json:"id"`
	Title       string        `json:"title"`
	Isbn        *string       `json:"isbn"`
	Description *string       `json:"description"`
	Characters  *resourceList `json:"characters"`
	Creators    *resourceList `json:"creators"`
}

type characterResult struct {
	Id          int           `json:"id"`
	Name        string        `json:"name"`
	Description *string       `json:"description"`
	Creators    *resourceList `json:"creators"`
	Comics      *resourceList `json:"comics"`
	Events      *resourceList `json:"events"`
	Thumbnail   *Thumbnail    `json:"thumbnail"`
}

type dataContainer[T any] struct {
	Offset  int `json:"offset"`
	Limit   int `json:"limit"`
	Total   int `json:"total"`
	Count   int `json:"count"`
	Results []T `json:"results"`
}

// envelope is the wrapper around every gateway response. Code is a number
// on data responses and a string such as "InvalidCredentials" on
// authentication failures.
type envelope[T any] struct {
	Code    json.RawMessage  `json:"code"`
	Status  string           `json:"status"`
	Message string           `json:"message"`
	Data    dataContainer[T] `json:"data"`
}

// code resolves the envelope code, using the HTTP status for string codes.
func (e *envelope[T]) code(httpStatus int) (int, string, bool) {
	if len(e.Code) == 0 || string(e.Code) == "null" {
		return 0, "", false
	}
	if n, err := strconv.Atoi(string(e.Code)); err == nil {
		return n, e.detail(""), true
	}
	var named string
	if err := json.Unmarshal(e.Code, &named); err != nil {
		return 0, "", false
	}
	if n, err := strconv.Atoi(named); err == nil {
		return n, e.detail(""), true
	}
	return httpStatus, e.detail(named), true
}

func (e *envelope[T]) detail(named string) string {
	msg := e.Message
	if msg == "" && e.Status != "Ok" {
		msg = e.Status
	}
	switch {
	case named == "":
		return msg
	case msg == "":
		return named
	default:
		return named + ": " + msg
	}
}

func (s Sentinels) comic(r comicResult) ComicRecord {
	return ComicRecord{
		ID:          r.Id,
		Title:       r.Title,
		ISBN:        s.text(r.Isbn, s.NotAvailable),
		Description: s.text(r.Description, s.NoDescription),
		Characters:  s.names(r.Characters),
		Creators:    s.names(r.Creators),
	}
}

func (s Sentinels) character(r characterResult) CharacterRecord {
	return CharacterRecord{
		ID:          r.Id,
		Name:        r.Name,
		Description: s.text(r.Description, s.NoDescription),
		Creators:    s.names(r.Creators),
		Comics:      s.names(r.Comics),
		Events:      s.names(r.Events),
		Thumbnail:   thumbnail(r.Thumbnail),
	}
}

func thumbnail(t *Thumbnail) *Thumbnail {
	if t == nil || t.Path == "" {
		return nil
	}
	return t
}
