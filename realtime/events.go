package realtime

import (
	"encoding/json"
	"strings"
	"sync/atomic"
)

const (
	EventSessionCreated      = "session.created"
	EventSessionUpdated      = "session.updated"
	EventSpeechStarted       = "input_audio_buffer.speech_started"
	EventSpeechStopped       = "input_audio_buffer.speech_stopped"
	EventItemCreated         = "conversation.item.created"
	EventTranscriptCompleted = "conversation.item.input_audio_transcription.completed"
	EventTextDelta           = "response.text.delta"
	EventTextDone            = "response.text.done"
	EventTranscriptDelta     = "response.audio_transcript.delta"
	EventTranscriptDone      = "response.audio_transcript.done"
	EventError               = "error"
)

// benignError is sent when an append carried less audio than the vendor's
// minimum; the buffer keeps accumulating and nothing is lost.
const benignError = "buffer too small"

type Callbacks struct {
	OnSpeechStarted func()
	OnSpeechStopped func()
	OnTranscript    func(text string)
	OnError         func(msg string)
	OnClose         func()
	// OnEvent sees every parsed event type, handled or not.
	OnEvent func(eventType string)
}

type serverEvent struct {
	Type       string      `json:"type"`
	Item       *eventItem  `json:"item"`
	Transcript string      `json:"transcript"`
	Delta      string      `json:"delta"`
	Error      *eventError `json:"error"`
}

type eventItem struct {
	Content []struct {
		Type       string `json:"type"`
		Transcript string `json:"transcript"`
	} `json:"content"`
}

type eventError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// dispatcher turns server messages into callbacks. It is driven by a single
// reader goroutine and keeps no locks.
type dispatcher struct {
	cb             Callbacks
	lastTranscript string
	delta          strings.Builder

	deduped    atomic.Int64
	suppressed atomic.Int64
}

func (d *dispatcher) handle(data []byte) error {
	var ev serverEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}
	if d.cb.OnEvent != nil {
		d.cb.OnEvent(ev.Type)
	}

	switch ev.Type {
	case EventSpeechStarted:
		if d.cb.OnSpeechStarted != nil {
			d.cb.OnSpeechStarted()
		}
	case EventSpeechStopped:
		if d.cb.OnSpeechStopped != nil {
			d.cb.OnSpeechStopped()
		}
	case EventItemCreated:
		if ev.Item != nil && len(ev.Item.Content) > 0 && ev.Item.Content[0].Type == "input_audio" {
			d.transcript(ev.Item.Content[0].Transcript)
		}
	case EventTranscriptCompleted:
		d.transcript(ev.Transcript)
	case EventTextDelta, EventTranscriptDelta:
		if ev.Delta == "" {
			return nil
		}
		d.delta.WriteString(ev.Delta)
		d.emit(ev.Delta)
	case EventTextDone, EventTranscriptDone:
		if d.delta.Len() == 0 {
			return nil
		}
		d.delta.Reset()
		d.emit(" ")
	case EventError:
		msg := "unknown realtime error"
		if ev.Error != nil && ev.Error.Message != "" {
			msg = ev.Error.Message
		}
		if strings.Contains(strings.ToLower(msg), benignError) {
			d.suppressed.Add(1)
			return nil
		}
		if d.cb.OnError != nil {
			d.cb.OnError(msg)
		}
	}
	return nil
}

// transcript forwards text once per distinct utterance. The vendor reports
// the same transcript under both item-created and transcription-completed,
// so a repeat of the previous text is dropped.
func (d *dispatcher) transcript(raw string) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return
	}
	if text == d.lastTranscript {
		d.deduped.Add(1)
		return
	}
	d.lastTranscript = text
	d.emit(text + " ")
}

func (d *dispatcher) emit(text string) {
	if d.cb.OnTranscript != nil {
		d.cb.OnTranscript(text)
	}
}
