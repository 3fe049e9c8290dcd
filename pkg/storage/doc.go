// Package storage stages downloaded images as temporary files for upload.
//
// Files are written under a .tmp name and renamed into place, named with a
// random UUID so concurrent runs sharing a temp directory never collide.
// WithStagedFile guarantees the file is gone when it returns.
package storage
