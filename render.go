package marvel

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Renderer is implemented by presentation layers that show client results.
type Renderer interface {
	RenderComics(w io.Writer, comics []ComicRecord) error
	RenderCharacters(w io.Writer, characters []CharacterRecord) error
	RenderError(w io.Writer, err error) error
}

// TextRenderer writes plain-text blocks separated by a dashed rule.
type TextRenderer struct {
	// ImageVariant selects the thumbnail URL printed for characters.
	// Empty omits the image line.
	ImageVariant string
}

var _ Renderer = TextRenderer{}

const rule = "--------------------------------------------------"

func (r TextRenderer) RenderComics(w io.Writer, comics []ComicRecord) error {
	for _, c := range comics {
		_, err := fmt.Fprintf(w, "\nTitle: %s\nISBN: %s\nDescription: %s\nCharacters: %s\nCreators: %s\n%s\n",
			c.Title,
			c.ISBN,
			c.Description,
			strings.Join(c.Characters, ", "),
			strings.Join(c.Creators, ", "),
			rule,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r TextRenderer) RenderCharacters(w io.Writer, characters []CharacterRecord) error {
	for _, c := range characters {
		_, err := fmt.Fprintf(w, "\nName: %s\nDescription: %s\nCreators: %s\nComics: %s\nEvents: %s\n",
			c.Name,
			c.Description,
			strings.Join(c.Creators, ", "),
			strings.Join(c.Comics, ", "),
			strings.Join(c.Events, ", "),
		)
		if err != nil {
			return err
		}
		if r.ImageVariant != "" && c.Thumbnail != nil {
			if _, err := fmt.Fprintf(w, "Image: %s\n", c.Thumbnail.URL(r.ImageVariant)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, rule); err != nil {
			return err
		}
	}
	return nil
}

func (r TextRenderer) RenderError(w io.Writer, err error) error {
	var vendorErr *VendorError
	var connErr *ConnectionError
	var msg string
	switch {
	case errors.As(err, &vendorErr):
		msg = fmt.Sprintf("Error loading results. Error code: %d", vendorErr.Code)
	case errors.As(err, &connErr):
		msg = "Connection error: " + connErr.Message
	case errors.Is(err, ErrInvalidInput):
		msg = "Invalid request: " + err.Error()
	default:
		msg = "Error: " + err.Error()
	}
	_, werr := fmt.Fprintln(w, msg)
	return werr
}
