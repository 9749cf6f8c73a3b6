package bridge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/FernandoPintoL/socket-rentals/internal/infrastructure/config"
)

// Command is what an inbound payload asks the relay to do.
type Command int

// Commands.
const (
	CommandNone Command = iota
	CommandOpen
	CommandClose
)

// String returns "open", "close" or "none".
func (c Command) String() string {
	switch c {
	case CommandOpen:
		return "open"
	case CommandClose:
		return "close"
	default:
		return "none"
	}
}

// Vocabulary holds the command and status words for one device type.
type Vocabulary struct {
	DeviceType string
	Open       string // command word that activates the relay
	Close      string // command word that deactivates it
	Active     string // status word while active
	Inactive   string // status word while inactive
}

var vocabularies = map[string]Vocabulary{
	config.DeviceTypeChapa: {
		DeviceType: config.DeviceTypeChapa,
		Open:       "abrir",
		Close:      "cerrar",
		Active:     "abierta",
		Inactive:   "cerrada",
	},
	config.DeviceTypeLuz: {
		DeviceType: config.DeviceTypeLuz,
		Open:       "encender",
		Close:      "apagar",
		Active:     "encendida",
		Inactive:   "apagada",
	},
}

// VocabularyFor returns the words used by the given device type.
func VocabularyFor(deviceType string) (Vocabulary, error) {
	v, ok := vocabularies[deviceType]
	if !ok {
		return Vocabulary{}, fmt.Errorf("%w: %q", ErrUnknownDeviceType, deviceType)
	}
	return v, nil
}

// Word returns the command word for c, or "" for CommandNone.
func (v Vocabulary) Word(c Command) string {
	switch c {
	case CommandOpen:
		return v.Open
	case CommandClose:
		return v.Close
	default:
		return ""
	}
}

// Status returns the status word for the given relay state.
func (v Vocabulary) Status(open bool) string {
	if open {
		return v.Active
	}
	return v.Inactive
}

// Reasons a payload produced no command.
const (
	ReasonNotObject      = "not a json object"
	ReasonUnknownAction  = "unknown action"
	ReasonDeviceMismatch = "addressed to another device"
	ReasonNoCommandWord  = "no command word"
)

// Parser extracts commands from inbound payloads.
type Parser struct {
	vocab    Vocabulary
	deviceID string
	mode     string
}

// NewParser creates a parser for the given vocabulary and match mode
// (config.MatchStructured or config.MatchSubstring).
func NewParser(vocab Vocabulary, deviceID, mode string) (*Parser, error) {
	switch mode {
	case config.MatchStructured, config.MatchSubstring:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMatchMode, mode)
	}
	return &Parser{vocab: vocab, deviceID: deviceID, mode: mode}, nil
}

// commandMessage is the structured command schema.
type commandMessage struct {
	Action   string  `json:"action"`
	DeviceID *string `json:"deviceId"`
}

// Parse returns the command carried by data. When the result is
// CommandNone, reason says why the payload was ignored.
func (p *Parser) Parse(data string) (cmd Command, reason string) {
	if p.mode == config.MatchSubstring {
		return p.parseSubstring(data)
	}
	return p.parseStructured(data)
}

func (p *Parser) parseStructured(data string) (Command, string) {
	trimmed := strings.TrimSpace(data)
	if !strings.HasPrefix(trimmed, "{") {
		return CommandNone, ReasonNotObject
	}

	var msg commandMessage
	if err := json.Unmarshal([]byte(trimmed), &msg); err != nil {
		return CommandNone, ReasonNotObject
	}

	if msg.DeviceID != nil && *msg.DeviceID != p.deviceID {
		return CommandNone, ReasonDeviceMismatch
	}

	switch msg.Action {
	case p.vocab.Open:
		return CommandOpen, ""
	case p.vocab.Close:
		return CommandClose, ""
	default:
		return CommandNone, ReasonUnknownAction
	}
}

// parseSubstring scans the raw text. The open word is checked first, so a
// payload containing both words opens the relay.
func (p *Parser) parseSubstring(data string) (Command, string) {
	if strings.Contains(data, p.vocab.Open) {
		return CommandOpen, ""
	}
	if strings.Contains(data, p.vocab.Close) {
		return CommandClose, ""
	}
	return CommandNone, ReasonNoCommandWord
}
