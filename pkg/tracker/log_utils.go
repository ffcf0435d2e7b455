package tracker

const logDataLimit = 128

// logSafe trims payloads for log fields; hashes may be up to 1000 bytes.
func logSafe(b []byte) string {
	if len(b) > logDataLimit {
		return string(b[:logDataLimit]) + "... [truncated]"
	}
	return string(b)
}
