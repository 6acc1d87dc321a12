package media

import "fmt"

// FormatSeconds renders seconds the way the trim command expects its seek
// and duration arguments: "00:00" for zero or less, "00:MM:SS" below an hour
// and "HH:MM:SS" above. Hours are capped at 99; anything larger becomes
// "99:59:59".
func FormatSeconds(seconds int64) string {
	if seconds <= 0 {
		return "00:00"
	}

	minute := seconds / 60
	if minute < 60 {
		return fmt.Sprintf("00:%02d:%02d", minute, seconds%60)
	}

	hour := minute / 60
	if hour > 99 {
		return "99:59:59"
	}
	minute %= 60
	second := seconds - hour*3600 - minute*60
	return fmt.Sprintf("%02d:%02d:%02d", hour, minute, second)
}

// formatSeek renders milliseconds as an ffmpeg seconds value, e.g. 1500 -> "1.500".
func formatSeek(ms int64) string {
	return fmt.Sprintf("%d.%03d", ms/1000, ms%1000)
}
