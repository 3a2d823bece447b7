package audio

import (
	"encoding/base64"
	"encoding/binary"
	"testing"
)

func TestFloatToPCM16(t *testing.T) {
	for _, tt := range []struct {
		name string
		in   float32
		want int16
	}{
		{"zero", 0, 0},
		{"full positive", 1, 32767},
		{"full negative", -1, -32768},
		{"half positive", 0.5, 16383},
		{"half negative", -0.5, -16384},
		{"clip high", 1.7, 32767},
		{"clip low", -3, -32768},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got := FloatToPCM16(nil, []float32{tt.in})
			if got[0] != tt.want {
				t.Errorf("FloatToPCM16(%v) = %d, want %d", tt.in, got[0], tt.want)
			}
		})
	}
}

func TestFloatToPCM16ReusesBuffer(t *testing.T) {
	buf := make([]int16, 0, 8)
	out := FloatToPCM16(buf, []float32{0.1, 0.2})
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if &out[0] != &buf[:1][0] {
		t.Error("expected dst backing array to be reused")
	}
}

func TestEncodePCM16LittleEndian(t *testing.T) {
	enc := EncodePCM16([]int16{1, -2, 32767})
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 6 {
		t.Fatalf("decoded %d bytes, want 6", len(raw))
	}
	want := []int16{1, -2, 32767}
	for i, w := range want {
		if got := int16(binary.LittleEndian.Uint16(raw[i*2:])); got != w {
			t.Errorf("sample %d = %d, want %d", i, got, w)
		}
	}
}

func TestPCM16ToFloatRoundTrip(t *testing.T) {
	raw := make([]byte, 4)
	binary.LittleEndian.PutUint16(raw, uint16(16384))
	neg := int16(-32768)
	binary.LittleEndian.PutUint16(raw[2:], uint16(neg))
	got := PCM16ToFloat(raw)
	if got[0] != 0.5 || got[1] != -1 {
		t.Errorf("got %v, want [0.5 -1]", got)
	}
}

func TestParseQuality(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want Quality
		rate uint32
	}{
		{"high", QualityHigh, 48000},
		{"Medium", QualityMedium, 24000},
		{"low", QualityLow, 16000},
		{"", QualityMedium, 24000},
	} {
		t.Run(tt.in, func(t *testing.T) {
			q, err := ParseQuality(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if q != tt.want || q.SampleRate() != tt.rate {
				t.Errorf("got %q/%d, want %q/%d", q, q.SampleRate(), tt.want, tt.rate)
			}
		})
	}
	if _, err := ParseQuality("ultra"); err == nil {
		t.Error("expected error for unknown quality")
	}
}
