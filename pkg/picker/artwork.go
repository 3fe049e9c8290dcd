package picker

import (
	"fmt"
	"strings"
)

const (
	// DefaultTitle stands in for a missing or blank title
	DefaultTitle = "Untitled"
	// DefaultArtist stands in for a missing or blank artist name
	DefaultArtist = "Unknown Artist"
)

// Artwork is one museum object as seen by the picker
type Artwork struct {
	ObjectID  int    `json:"object_id"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	DetailURL string `json:"detail_url"`
	ImageURL  string `json:"image_url"`
}

// NewArtwork builds an Artwork, substituting defaults for a blank title or
// artist. The detail URL may stay empty.
func NewArtwork(objectID int, title, artist, detailURL, imageURL string) Artwork {
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}
	if strings.TrimSpace(artist) == "" {
		artist = DefaultArtist
	}
	return Artwork{
		ObjectID:  objectID,
		Title:     title,
		Artist:    artist,
		DetailURL: detailURL,
		ImageURL:  strings.TrimSpace(imageURL),
	}
}

// Eligible reports whether the artwork has an image to post
func (a *Artwork) Eligible() bool {
	return a != nil && a.ImageURL != ""
}

// Caption renders the post text for a
func Caption(a Artwork) string {
	return fmt.Sprintf("%s by %s. See more: %s", a.Title, a.Artist, a.DetailURL)
}

// Caption renders the post text for the artwork
func (a Artwork) Caption() string {
	return Caption(a)
}
