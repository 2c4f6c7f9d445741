package wizard

import (
	"github.com/altafino/mail-watcher/internal/amazon"
)

// Error codes attached to fields at the options/resource-selection step.
const (
	errScanTooLow    = "scan_too_low"
	errTimeoutTooLow = "timeout_too_low"
	errFFmpegMissing = "ffmpeg_not_found"
	errFileMissing   = "file_not_found"
)

// validateOptions checks the accumulated data at the resource-selection (and
// custom-image) steps. Failures are attached to the offending field; they
// never abort the flow. The amazon forwarding field is replaced with the
// best-effort parsed list even on rejection, so the re-rendered form shows
// what the user submitted.
func (w *Wizard) validateOptions(data map[string]any) map[string]string {
	errs := make(map[string]string)

	if raw, ok := data[KeyAmazonFwds].(string); ok {
		status, forwards := amazon.Parse(raw)
		data[KeyAmazonFwds] = forwards
		if status != amazon.StatusOK {
			errs[KeyAmazonFwds] = status
		}
	}

	if getBool(data, KeyGenerateMP4) && !w.caps.HasFFmpeg() {
		errs[KeyGenerateMP4] = errFFmpegMissing
	}

	// The path is only checked once the field exists in the accumulated
	// data; the custom-image step may not have run yet.
	if getBool(data, KeyCustomImg) {
		if path, ok := data[KeyCustomImgFile].(string); ok && !w.fileExists(path) {
			errs[KeyCustomImgFile] = errFileMissing
		}
	}

	if getInt(data, KeyScanInterval) < MinScanInterval {
		errs[KeyScanInterval] = errScanTooLow
	}

	if getInt(data, KeyIMAPTimeout) < MinIMAPTimeout {
		errs[KeyIMAPTimeout] = errTimeoutTooLow
	}

	return errs
}
