// Package media inspects downloaded artwork images and shrinks them to the
// publisher's upload limits.
package media
