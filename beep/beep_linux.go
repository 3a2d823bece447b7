//go:build linux

package beep

import (
	"sync"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"

	"voicenote/log"
)

var (
	cacheMu sync.Mutex
	cache   = map[Cue][]int16{}
)

// stereo returns the interleaved samples for c. Pulse wants 200ms of audio
// before it starts draining, so each tick is at least that long.
func stereo(c Cue, t tone) []int16 {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if s, ok := cache[c]; ok {
		return s
	}
	mono := render(t, 0.2)
	s := make([]int16, len(mono)*2)
	for i, v := range mono {
		s[i*2] = v
		s[i*2+1] = v
	}
	cache[c] = s
	return s
}

func play(c Cue, t tone) {
	samples := stereo(c, t)
	go func() {
		if err := playSamples(samples); err != nil {
			log.Warnf("cue playback: %v", err)
		}
	}()
}

func playSamples(samples []int16) error {
	client, err := pulse.NewClient()
	if err != nil {
		return err
	}
	defer client.Close()

	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[pos:])
		pos += n
		return n, nil
	})
	stream, err := client.NewPlayback(reader,
		pulse.PlaybackStereo,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm), uint32(proto.VolumeNorm)}
		}),
	)
	if err != nil {
		return err
	}
	defer stream.Close()
	stream.Start()
	stream.Drain()
	stream.Stop()
	return nil
}
