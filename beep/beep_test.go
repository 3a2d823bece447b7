package beep

import "testing"

func TestRenderLength(t *testing.T) {
	tests := []struct {
		name string
		cue  Cue
		min  float64
		want int
	}{
		{"start", Start, 0, int(sampleRate * 0.03)},
		{"start padded", Start, 0.2, int(sampleRate * 0.2)},
		{"failure double", Failure, 0, 2*int(sampleRate*0.08) + int(sampleRate*0.05)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(render(tones[tt.cue], tt.min)); got != tt.want {
				t.Errorf("len = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRenderDecays(t *testing.T) {
	s := render(tones[Stop], 0.2)
	peak := func(from, to int) int16 {
		var p int16
		for _, v := range s[from:to] {
			if v < 0 {
				v = -v
			}
			p = max(p, v)
		}
		return p
	}
	head := peak(0, 1000)
	tail := peak(len(s)-1000, len(s))
	if head == 0 || tail >= head {
		t.Errorf("peak head %d, tail %d; want a decaying tick", head, tail)
	}
}

func TestFailureHasSilentGap(t *testing.T) {
	s := render(tones[Failure], 0)
	tick := int(sampleRate * 0.08)
	for i, v := range s[tick : tick+int(sampleRate*0.05)] {
		if v != 0 {
			t.Fatalf("gap sample %d = %d", i, v)
		}
	}
}

func TestDisabledPlayIsNoop(t *testing.T) {
	Disable()
	Play(Start)
	Play(Cue(99))
}
