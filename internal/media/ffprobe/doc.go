// Package ffprobe wraps the ffprobe CLI with typed accessors for the stream
// and container fields the pipeline needs: duration for frame sampling and
// resolution for the quality tag.
package ffprobe
