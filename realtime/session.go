package realtime

const (
	DefaultURL                = "wss://api.openai.com/v1/realtime"
	DefaultModel              = "gpt-4o-realtime-preview-2024-12-17"
	DefaultTranscriptionModel = "whisper-1"
)

const defaultInstructions = `You transcribe dictated notes spoken in Mandarin Chinese, English, or a mix of both.
- Write Chinese in Simplified characters.
- Keep English words, brand names, and technical terms exactly as spoken; never translate them.
- Trim leading and trailing whitespace and never emit line breaks.
- Put one space between English words and Chinese characters and no space before punctuation.
- Use Chinese punctuation (。，？！) for Chinese sentences and English punctuation for English sentences.`

type VADConfig struct {
	Threshold         float64
	PrefixPaddingMs   int
	SilenceDurationMs int
}

type Config struct {
	APIKey             string
	URL                string
	Model              string
	TranscriptionModel string
	Instructions       string
	VAD                VADConfig
	CreateResponse     bool
	Temperature        float64
	MaxOutputTokens    int
}

func (c Config) withDefaults() Config {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.TranscriptionModel == "" {
		c.TranscriptionModel = DefaultTranscriptionModel
	}
	if c.Instructions == "" {
		c.Instructions = defaultInstructions
	}
	if c.VAD == (VADConfig{}) {
		c.VAD = VADConfig{Threshold: 0.3, PrefixPaddingMs: 300, SilenceDurationMs: 500}
	}
	if c.Temperature == 0 {
		c.Temperature = 0.6
	}
	if c.MaxOutputTokens == 0 {
		c.MaxOutputTokens = 4096
	}
	return c
}

type sessionUpdate struct {
	Type    string        `json:"type"`
	Session sessionConfig `json:"session"`
}

type sessionConfig struct {
	Modalities              []string           `json:"modalities"`
	InputAudioFormat        string             `json:"input_audio_format"`
	Instructions            string             `json:"instructions"`
	InputAudioTranscription audioTranscription `json:"input_audio_transcription"`
	TurnDetection           turnDetection      `json:"turn_detection"`
	Temperature             float64            `json:"temperature"`
	ToolChoice              string             `json:"tool_choice"`
	MaxResponseOutputTokens int                `json:"max_response_output_tokens"`
}

type audioTranscription struct {
	Model string `json:"model"`
}

type turnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms"`
	SilenceDurationMs int     `json:"silence_duration_ms"`
	CreateResponse    bool    `json:"create_response"`
}

func newSessionUpdate(cfg Config) sessionUpdate {
	return sessionUpdate{
		Type: "session.update",
		Session: sessionConfig{
			Modalities:              []string{"text"},
			InputAudioFormat:        "pcm16",
			Instructions:            cfg.Instructions,
			InputAudioTranscription: audioTranscription{Model: cfg.TranscriptionModel},
			TurnDetection: turnDetection{
				Type:              "server_vad",
				Threshold:         cfg.VAD.Threshold,
				PrefixPaddingMs:   cfg.VAD.PrefixPaddingMs,
				SilenceDurationMs: cfg.VAD.SilenceDurationMs,
				CreateResponse:    cfg.CreateResponse,
			},
			Temperature:             cfg.Temperature,
			ToolChoice:              "none",
			MaxResponseOutputTokens: cfg.MaxOutputTokens,
		},
	}
}

type audioAppend struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}
