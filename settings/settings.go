package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"voicenote/audio"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvAPIKey = "OPENAI_API_KEY"
	EnvPath   = "VOICENOTE_CONFIG"
)

// Settings is the persisted application state.
type Settings struct {
	OpenAIKey   string        `yaml:"openai_api_key"`
	IsRecording bool          `yaml:"is_recording"`
	Quality     audio.Quality `yaml:"audio_quality"`
}

func Defaults() Settings {
	return Settings{Quality: audio.QualityMedium}
}

// DefaultPath is $VOICENOTE_CONFIG or <user config dir>/voicenote/settings.yaml.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvPath); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "voicenote", "settings.yaml"), nil
}

// LoadEnv reads .env files into the environment. Missing files are fine.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

type Store struct {
	path string

	mu sync.Mutex
	s  Settings
}

// Open loads the settings file at path, falling back to defaults when it
// does not exist. The recording flag is always false after loading.
func Open(path string) (*Store, error) {
	st := &Store{path: path, s: Defaults()}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return st, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &st.s); err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	st.s.IsRecording = false
	q, err := audio.ParseQuality(string(st.s.Quality))
	if err != nil {
		q = audio.QualityMedium
	}
	st.s.Quality = q
	return st, nil
}

func (st *Store) Path() string { return st.path }

func (st *Store) Get() Settings {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s
}

// APIKey prefers $OPENAI_API_KEY over the stored key.
func (st *Store) APIKey() string {
	if k := os.Getenv(EnvAPIKey); k != "" {
		return k
	}
	return st.Get().OpenAIKey
}

// Update applies fn and saves the result.
func (st *Store) Update(fn func(*Settings)) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	next := st.s
	fn(&next)
	if err := st.write(next); err != nil {
		return err
	}
	st.s = next
	return nil
}

func (st *Store) SetRecording(on bool) error {
	return st.Update(func(s *Settings) { s.IsRecording = on })
}

func (st *Store) SetAPIKey(key string) error {
	return st.Update(func(s *Settings) { s.OpenAIKey = key })
}

func (st *Store) SetQuality(v string) error {
	q, err := audio.ParseQuality(v)
	if err != nil {
		return err
	}
	return st.Update(func(s *Settings) { s.Quality = q })
}

func (st *Store) write(s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(st.path), 0700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	tmp := st.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, st.path)
}

// MaskedKey renders the key with everything but the last four characters
// hidden.
func MaskedKey(k string) string {
	if k == "" {
		return "(not set)"
	}
	if len(k) <= 4 {
		return "****"
	}
	return "****" + k[len(k)-4:]
}
