package frames

import "fmt"

// Timecode converts a frame index to non-drop HH:MM:SS:FF at an integer
// frame rate. Callers keep frame within the source video.
func Timecode(frame, fps int) string {
	hours := frame / (3600 * fps)
	minutes := (frame / (60 * fps)) % 60
	seconds := (frame / fps) % 60
	frames := frame % fps
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}

// RangeTimecode renders "start - end" for a range.
func RangeTimecode(r Range, fps int) string {
	return Timecode(r.First, fps) + " - " + Timecode(r.Last, fps)
}

// Seconds converts a frame index to a time offset in seconds.
func Seconds(frame, fps int) float64 {
	return float64(frame) / float64(fps)
}
