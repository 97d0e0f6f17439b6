// Package state persists source fingerprints between runs so the image
// pipeline can tell unchanged inputs from edited ones.
package state
