// Package analysis probes queued videos with ffprobe, samples frames with
// ffmpeg, and harvests OCR fragments plus actor and studio signals from the
// sampled frames. Its output is persisted on the queue item for the
// identification stage.
package analysis
