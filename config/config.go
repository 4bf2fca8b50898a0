package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults mirror the 16kHz mono contract the engines expect.
const (
	DefaultSampleRate = 16000
	DefaultChannels   = 1
)

type EngineConfig struct {
	Kind        string        `yaml:"kind"` // "openai" or "whisper-cpp"
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	BinaryPath  string        `yaml:"binary_path"`
	ModelPath   string        `yaml:"model_path"`
	Timeout     time.Duration `yaml:"timeout"`
	Format      string        `yaml:"format"` // upload container: "wav" or "flac"
	Language    string        `yaml:"language"`
}

type SilenceConfig struct {
	Threshold     float64       `yaml:"threshold"`      // RMS amplitude, 0..1
	AutoStopAfter time.Duration `yaml:"auto_stop_after"`
	MinSpan       time.Duration `yaml:"min_span"`  // spans shorter than this are kept
	MergeGap      time.Duration `yaml:"merge_gap"` // spans closer than this coalesce
}

type Config struct {
	Binding   string        `yaml:"binding"` // e.g. "F9", "CTRL+SHIFT+SPACE"
	Mode      string        `yaml:"mode"`    // "toggle" or "ptt"
	CancelKey string        `yaml:"cancel_key"`
	Output    string        `yaml:"output"` // "clipboard", "type", or "both"
	Engine    EngineConfig  `yaml:"engine"`
	Silence   SilenceConfig `yaml:"silence"`

	SpeedFactor float64 `yaml:"speed_factor"`
	SampleRate  int     `yaml:"sample_rate"`
	Channels    int     `yaml:"channels"`

	// SaveAudio keeps a WAV copy of each post-processed utterance in the
	// log directory for debugging.
	SaveAudio bool `yaml:"save_audio"`
}

func Default() Config {
	return Config{
		Binding:   "F9",
		Mode:      "toggle",
		CancelKey: "ESC",
		Output:    "clipboard",
		Engine: EngineConfig{
			Kind:     "openai",
			Model:    "gpt-4o-transcribe",
			Timeout:  30 * time.Second,
			Format:   "flac",
			Language: "en",
		},
		Silence: SilenceConfig{
			Threshold:     0.01,
			AutoStopAfter: 10 * time.Second,
			MinSpan:       300 * time.Millisecond,
			MergeGap:      150 * time.Millisecond,
		},
		SpeedFactor: 1.0,
		SampleRate:  DefaultSampleRate,
		Channels:    DefaultChannels,
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "murmur", "config.yaml"), nil
}

// Load reads the YAML file at path over the defaults, then applies the
// environment. A missing file is not an error; the defaults stand.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// defaults
	case err != nil:
		return cfg, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && c.Engine.APIKey == "" {
		c.Engine.APIKey = key
	}
	if b := os.Getenv("MURMUR_BINDING"); b != "" {
		c.Binding = b
	}
}

// Validate reports the first configuration error. It is called once at
// startup; a failure here means no session ever begins.
func (c *Config) Validate() error {
	switch c.Mode {
	case "toggle", "ptt":
	default:
		return fmt.Errorf("unknown recording mode %q (use toggle or ptt)", c.Mode)
	}
	switch c.Output {
	case "clipboard", "type", "both":
	default:
		return fmt.Errorf("unknown output mode %q (use clipboard, type, or both)", c.Output)
	}
	if c.Binding == "" {
		return fmt.Errorf("no trigger binding configured")
	}
	switch c.Engine.Kind {
	case "openai":
		if c.Engine.APIKey == "" {
			return fmt.Errorf("openai engine requires an API key (set OPENAI_API_KEY)")
		}
	case "whisper-cpp":
		if c.Engine.BinaryPath == "" {
			return fmt.Errorf("whisper-cpp engine requires binary_path")
		}
		if c.Engine.ModelPath == "" {
			return fmt.Errorf("whisper-cpp engine requires model_path")
		}
	default:
		return fmt.Errorf("unknown engine %q (use openai or whisper-cpp)", c.Engine.Kind)
	}
	switch c.Engine.Format {
	case "wav", "flac":
	default:
		return fmt.Errorf("unknown upload format %q (use wav or flac)", c.Engine.Format)
	}
	if c.SpeedFactor < 0.5 || c.SpeedFactor > 3.0 {
		return fmt.Errorf("speed_factor %.2f out of range (0.5-3.0)", c.SpeedFactor)
	}
	if c.Silence.Threshold <= 0 || c.Silence.Threshold >= 1 {
		return fmt.Errorf("silence threshold %.3f out of range (0-1)", c.Silence.Threshold)
	}
	if c.Engine.Timeout <= 0 {
		return fmt.Errorf("engine timeout must be positive")
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate %d must be positive", c.SampleRate)
	}
	// The dsp pass and both upload encoders assume mono capture.
	if c.Channels != 1 {
		return fmt.Errorf("channels %d unsupported (capture is mono)", c.Channels)
	}
	return nil
}
