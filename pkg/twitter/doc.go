// Package twitter publishes artwork posts to X.
//
// Requests are signed with OAuth 1.0a user-context credentials via
// github.com/dghubble/oauth1. An image is uploaded through the v1.1 media
// endpoint and then attached to a post created through the v2 API.
// Media uploads may be retried; post creation is not.
package twitter
