// Package robot maps analysed emotions to companion robot reactions and
// drives an actuator backend.
package robot

import (
	"fmt"
	"strings"
)

// State is the controller state reported by the status API.
type State int

const (
	StateIdle State = iota
	StateListening
	StateProcessing
	StateResponding
	StateError
)

var stateNames = [...]string{"IDLE", "LISTENING", "PROCESSING", "RESPONDING", "ERROR"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	name := strings.ToUpper(string(text))
	for i, n := range stateNames {
		if n == name {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown robot state %q", text)
}

// Movement is a predefined movement pattern.
type Movement string

const (
	MovementNod        Movement = "NOD"
	MovementShake      Movement = "SHAKE"
	MovementTiltLeft   Movement = "TILT_LEFT"
	MovementTiltRight  Movement = "TILT_RIGHT"
	MovementLookUp     Movement = "LOOK_UP"
	MovementLookDown   Movement = "LOOK_DOWN"
	MovementLookAround Movement = "LOOK_AROUND"
	MovementWave       Movement = "WAVE"
	MovementJump       Movement = "JUMP"
)

// RGB is an LED color.
type RGB [3]uint8

// Reaction is what the robot does in response to an emotion.
type Reaction struct {
	Emotion  string   `json:"emotion"`
	LEDColor RGB      `json:"led_color"`
	Movement Movement `json:"movement"`
	Sound    string   `json:"sound"`
	Message  string   `json:"message"`
}

const emotionNeutral = "neutral"

var reactions = map[string]Reaction{
	"happy": {
		LEDColor: RGB{0, 255, 0},
		Movement: MovementNod,
		Sound:    "happy.wav",
		Message:  "I can tell you're happy! That's wonderful.",
	},
	"sad": {
		LEDColor: RGB{0, 0, 255},
		Movement: MovementTiltLeft,
		Sound:    "sad.wav",
		Message:  "I notice you seem sad. Is there anything I can help with?",
	},
	"angry": {
		LEDColor: RGB{255, 0, 0},
		Movement: MovementShake,
		Sound:    "calm.wav",
		Message:  "You seem upset. Would you like to take a few deep breaths together?",
	},
	emotionNeutral: {
		LEDColor: RGB{255, 255, 255},
		Movement: MovementLookAround,
		Sound:    "neutral.wav",
		Message:  "How are you feeling today?",
	},
	"surprise": {
		LEDColor: RGB{255, 255, 0},
		Movement: MovementJump,
		Sound:    "surprise.wav",
		Message:  "Oh! That's surprising!",
	},
}

// aliases maps transcription emotion labels onto reaction keys.
var aliases = map[string]string{
	"surprised": "surprise",
}

// ReactionFor returns the reaction for an emotion label. Unknown labels
// get the neutral reaction.
func ReactionFor(emotion string) Reaction {
	key := strings.ToLower(strings.TrimSpace(emotion))
	if alias, ok := aliases[key]; ok {
		key = alias
	}
	r, ok := reactions[key]
	if !ok {
		key = emotionNeutral
		r = reactions[key]
	}
	r.Emotion = key
	return r
}

// Emotions returns the emotions with a dedicated reaction.
func Emotions() []string {
	return []string{"happy", "sad", "angry", emotionNeutral, "surprise"}
}
