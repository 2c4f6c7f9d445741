package capability

import "os/exec"

// Checker reports which optional host capabilities are available.
type Checker struct{}

// HasFFmpeg reports whether an ffmpeg binary is on PATH. Video generation
// cannot be enabled without it.
func (Checker) HasFFmpeg() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}
