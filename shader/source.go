package shader

import (
	"log/slog"
	"os"
)

// readSource returns the file's text, or "" when it cannot be read so the
// compiler reports the problem instead of the program faulting.
func readSource(path string) string {
	slog.Debug("loading shader", "path", path)
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("failed to open shader file", "path", path, "err", err)
		return ""
	}
	return string(data)
}
