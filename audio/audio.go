package audio

import (
	"fmt"
	"strings"
)

const WAVHeaderSize = 44

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"tozo", "anker soundcore", "skullcandy",
	"bluetooth", " bt ", " bt)", " bt]",
}

func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// isMonitorSource reports whether a PulseAudio source id names the loopback
// of an output sink rather than a microphone.
func isMonitorSource(id string) bool {
	return strings.HasSuffix(id, ".monitor")
}

// Quality selects the capture sample rate.
type Quality string

const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
)

func ParseQuality(s string) (Quality, error) {
	switch q := Quality(strings.ToLower(strings.TrimSpace(s))); q {
	case QualityHigh, QualityMedium, QualityLow:
		return q, nil
	case "":
		return QualityMedium, nil
	default:
		return "", fmt.Errorf("unknown audio quality %q (use high, medium, or low)", s)
	}
}

func (q Quality) SampleRate() uint32 {
	switch q {
	case QualityHigh:
		return 48000
	case QualityLow:
		return 16000
	default:
		return 24000
	}
}

// DataCallback receives mono float32 samples in [-1, 1].
type DataCallback func(samples []float32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
	FrameSize  uint32 // preferred period size in frames; backends may deliver other sizes
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}
