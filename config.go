package main

import (
	"fmt"
	"io"

	"voicenote/settings"
)

const configUsage = `usage: voicenote config show
       voicenote config set key <openai-api-key>
       voicenote config set quality <high|medium|low>`

// runConfig is the settings surface: it shows or edits the persisted settings
// and returns the process exit code.
func runConfig(args []string, path string, out io.Writer) int {
	store, err := settings.Open(path)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return 1
	}

	switch {
	case len(args) == 1 && args[0] == "show":
		s := store.Get()
		fmt.Fprintf(out, "settings: %s\n", store.Path())
		fmt.Fprintf(out, "openai_api_key: %s\n", settings.MaskedKey(s.OpenAIKey))
		fmt.Fprintf(out, "audio_quality: %s (%d Hz)\n", s.Quality, s.Quality.SampleRate())
		return 0

	case len(args) == 3 && args[0] == "set" && args[1] == "key":
		if err := store.SetAPIKey(args[2]); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintf(out, "openai_api_key: %s\n", settings.MaskedKey(args[2]))
		return 0

	case len(args) == 3 && args[0] == "set" && args[1] == "quality":
		if err := store.SetQuality(args[2]); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintf(out, "audio_quality: %s\n", store.Get().Quality)
		return 0
	}

	fmt.Fprintln(out, configUsage)
	return 2
}
