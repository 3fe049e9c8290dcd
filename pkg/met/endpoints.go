package met

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// DefaultBaseURL is the public collection API root
	DefaultBaseURL = "https://collectionapi.metmuseum.org/public/collection/v1"

	// SearchEndpoint lists object IDs matching a query
	SearchEndpoint = "/search"

	// ObjectEndpoint returns a single object record
	ObjectEndpoint = "/objects/"
)

// SearchURL builds the search URL restricted to objects with images
func SearchURL(baseURL, term string) string {
	params := url.Values{}
	params.Set("hasImages", "true")
	params.Set("q", term)

	return fmt.Sprintf("%s%s?%s", strings.TrimRight(baseURL, "/"), SearchEndpoint, params.Encode())
}

// ObjectURL builds the URL of one object record
func ObjectURL(baseURL string, objectID int) string {
	return fmt.Sprintf("%s%s%d", strings.TrimRight(baseURL, "/"), ObjectEndpoint, objectID)
}
