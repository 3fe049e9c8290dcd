package met

// SearchResponse is the body returned by the search endpoint. ObjectIDs is
// null when nothing matches.
type SearchResponse struct {
	Total     int   `json:"total"`
	ObjectIDs []int `json:"objectIDs"`
}

// Object is the subset of an object record the bot uses
type Object struct {
	ObjectID          int    `json:"objectID"`
	IsPublicDomain    bool   `json:"isPublicDomain"`
	PrimaryImage      string `json:"primaryImage"`
	PrimaryImageSmall string `json:"primaryImageSmall"`
	Department        string `json:"department"`
	ObjectName        string `json:"objectName"`
	Title             string `json:"title"`
	ArtistDisplayName string `json:"artistDisplayName"`
	ObjectDate        string `json:"objectDate"`
	Medium            string `json:"medium"`
	ObjectURL         string `json:"objectURL"`
}

// HasImage reports whether the record links a primary image
func (o *Object) HasImage() bool {
	return o != nil && o.PrimaryImage != ""
}
