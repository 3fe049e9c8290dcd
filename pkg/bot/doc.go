// Package bot wires the picker, image download, temp-file staging and the
// publisher into a single run.
package bot
