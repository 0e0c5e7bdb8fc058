package debate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kadirpekel/debater/pkg/model"
)

// Speaker identifies one of the two debaters.
type Speaker string

const (
	SpeakerA Speaker = "A"
	SpeakerB Speaker = "B"

	// Opener speaks first.
	Opener = SpeakerA
)

// Other returns the opposing speaker.
func (s Speaker) Other() Speaker {
	if s == SpeakerA {
		return SpeakerB
	}
	return SpeakerA
}

func (s Speaker) Valid() bool {
	return s == SpeakerA || s == SpeakerB
}

// Mode selects how turns advance.
type Mode string

const (
	// ModeManual pauses after every turn until resumed.
	ModeManual Mode = "manual"
	// ModeAuto continues after AutoDelaySeconds.
	ModeAuto Mode = "auto"
)

// Status is the lifecycle state of a debate.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// Defaults applied to configs decoded from JSON or built in code.
const (
	DefaultTemperature      = 0.7
	DefaultMaxTokens        = 350
	DefaultMaxTurns         = 10
	DefaultAutoDelaySeconds = 2.0
	DefaultMode             = ModeManual
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid debate config")

// DebaterConfig binds one side of the debate to a backend.
type DebaterConfig struct {
	Provider    string  `json:"provider" jsonschema:"required,description=Provider id (openai, anthropic, gemini, ollama)"`
	Model       string  `json:"model" jsonschema:"required"`
	Position    string  `json:"position" jsonschema:"required,description=Stance this debater argues for"`
	Temperature float64 `json:"temperature" jsonschema:"minimum=0,maximum=2,default=0.7"`
	MaxTokens   int     `json:"max_tokens" jsonschema:"minimum=1,default=350"`
}

// UnmarshalJSON applies defaults for omitted fields.
func (c *DebaterConfig) UnmarshalJSON(data []byte) error {
	type alias DebaterConfig
	aux := alias{Temperature: DefaultTemperature, MaxTokens: DefaultMaxTokens}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = DebaterConfig(aux)
	return nil
}

// SetDefaults fills zero MaxTokens. A zero temperature is kept.
func (c *DebaterConfig) SetDefaults() {
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}
}

func (c *DebaterConfig) Validate() error {
	var errs []string
	if strings.TrimSpace(c.Provider) == "" {
		errs = append(errs, "provider is required")
	}
	if strings.TrimSpace(c.Model) == "" {
		errs = append(errs, "model is required")
	}
	if strings.TrimSpace(c.Position) == "" {
		errs = append(errs, "position is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Sprintf("temperature %.2f outside [0, 2]", c.Temperature))
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, "max_tokens must be positive")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Options converts the debater settings into per-call generation options.
func (c *DebaterConfig) Options() model.GenerateOptions {
	temp, maxTokens := c.Temperature, c.MaxTokens
	return model.GenerateOptions{Model: c.Model, Temperature: &temp, MaxTokens: &maxTokens}
}

// Config is the immutable setup of a debate.
type Config struct {
	Topic            string        `json:"topic" jsonschema:"required"`
	DebaterA         DebaterConfig `json:"debater_a" jsonschema:"required"`
	DebaterB         DebaterConfig `json:"debater_b" jsonschema:"required"`
	Mode             Mode          `json:"mode" jsonschema:"enum=manual,enum=auto,default=manual"`
	MaxTurns         int           `json:"max_turns" jsonschema:"minimum=1,default=10"`
	AutoDelaySeconds float64       `json:"auto_delay_seconds" jsonschema:"minimum=0,default=2"`
}

// UnmarshalJSON applies defaults for omitted fields.
func (c *Config) UnmarshalJSON(data []byte) error {
	type alias Config
	aux := alias{
		Mode:             DefaultMode,
		MaxTurns:         DefaultMaxTurns,
		AutoDelaySeconds: DefaultAutoDelaySeconds,
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = Config(aux)
	return nil
}

// SetDefaults fills zero Mode and MaxTurns. A zero delay is kept.
func (c *Config) SetDefaults() {
	if c.Mode == "" {
		c.Mode = DefaultMode
	}
	if c.MaxTurns == 0 {
		c.MaxTurns = DefaultMaxTurns
	}
	c.DebaterA.SetDefaults()
	c.DebaterB.SetDefaults()
}

// Validate checks the config; every failure wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []string
	if strings.TrimSpace(c.Topic) == "" {
		errs = append(errs, "topic is required")
	}
	if err := c.DebaterA.Validate(); err != nil {
		errs = append(errs, "debater_a: "+err.Error())
	}
	if err := c.DebaterB.Validate(); err != nil {
		errs = append(errs, "debater_b: "+err.Error())
	}
	if c.Mode != ModeManual && c.Mode != ModeAuto {
		errs = append(errs, fmt.Sprintf("mode %q must be manual or auto", c.Mode))
	}
	if c.MaxTurns <= 0 {
		errs = append(errs, "max_turns must be positive")
	}
	if c.AutoDelaySeconds < 0 {
		errs = append(errs, "auto_delay_seconds must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// Debater returns the settings for s.
func (c *Config) Debater(s Speaker) DebaterConfig {
	if s == SpeakerB {
		return c.DebaterB
	}
	return c.DebaterA
}

// AutoDelay returns the pause between turns in auto mode.
func (c *Config) AutoDelay() time.Duration {
	return time.Duration(c.AutoDelaySeconds * float64(time.Second))
}

// Turn is one recorded contribution. Turns are never modified once
// appended.
type Turn struct {
	Debater    Speaker   `json:"debater"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	TurnNumber int       `json:"turn_number"`
}

// State is a point-in-time snapshot of a debate.
type State struct {
	ID             string  `json:"id"`
	Config         Config  `json:"config"`
	Status         Status  `json:"status"`
	Turns          []Turn  `json:"turns"`
	CurrentTurn    int     `json:"current_turn"`
	CurrentDebater Speaker `json:"current_debater"`
}

// clone returns a copy that shares nothing mutable with s.
func (s *State) clone() State {
	out := *s
	out.Turns = make([]Turn, len(s.Turns))
	copy(out.Turns, s.Turns)
	return out
}
