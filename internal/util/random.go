package util

import "math/rand/v2"

const hexDigits = "0123456789abcdef"

// GenerateReportID returns a fresh identifier for an exported report file,
// "rep_" followed by 16 hex digits. Collisions are only a cosmetic concern
// for file names, so math/rand is plenty.
func GenerateReportID() string {
	return "rep_" + randomHex(16)
}

func randomHex(n int) string {
	if n <= 0 {
		return ""
	}
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = hexDigits[rand.IntN(len(hexDigits))]
	}
	return string(buf)
}
