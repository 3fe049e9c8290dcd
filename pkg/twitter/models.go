package twitter

import "strings"

// mediaUploadResponse is the v1.1 media upload body
type mediaUploadResponse struct {
	MediaID       int64  `json:"media_id"`
	MediaIDString string `json:"media_id_string"`
	Size          int64  `json:"size"`
	Image         *struct {
		ImageType string `json:"image_type"`
		Width     int    `json:"w"`
		Height    int    `json:"h"`
	} `json:"image,omitempty"`
}

type createTweetRequest struct {
	Text  string      `json:"text"`
	Media *tweetMedia `json:"media,omitempty"`
}

type tweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

// Tweet is a created post
type Tweet struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type createTweetResponse struct {
	Data Tweet `json:"data"`
}

// apiErrorBody covers both the v1.1 and v2 error shapes
type apiErrorBody struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (b apiErrorBody) message() string {
	if b.Detail != "" {
		return b.Detail
	}
	if b.Title != "" {
		return b.Title
	}
	msgs := make([]string, 0, len(b.Errors))
	for _, e := range b.Errors {
		if e.Message != "" {
			msgs = append(msgs, e.Message)
		}
	}
	return strings.Join(msgs, "; ")
}
