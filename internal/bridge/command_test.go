package bridge

import (
	"errors"
	"testing"

	"github.com/FernandoPintoL/socket-rentals/internal/infrastructure/config"
)

func TestVocabularyFor(t *testing.T) {
	tests := []struct {
		deviceType string
		want       Vocabulary
		wantErr    bool
	}{
		{
			deviceType: "chapa",
			want:       Vocabulary{DeviceType: "chapa", Open: "abrir", Close: "cerrar", Active: "abierta", Inactive: "cerrada"},
		},
		{
			deviceType: "luz",
			want:       Vocabulary{DeviceType: "luz", Open: "encender", Close: "apagar", Active: "encendida", Inactive: "apagada"},
		},
		{deviceType: "puerta", wantErr: true},
		{deviceType: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.deviceType, func(t *testing.T) {
			got, err := VocabularyFor(tt.deviceType)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownDeviceType) {
					t.Errorf("VocabularyFor(%q) error = %v, want ErrUnknownDeviceType", tt.deviceType, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("VocabularyFor(%q) error = %v", tt.deviceType, err)
			}
			if got != tt.want {
				t.Errorf("VocabularyFor(%q) = %+v, want %+v", tt.deviceType, got, tt.want)
			}
		})
	}
}

func TestVocabulary_WordAndStatus(t *testing.T) {
	v, _ := VocabularyFor(config.DeviceTypeChapa)

	if got := v.Word(CommandOpen); got != "abrir" {
		t.Errorf("Word(open) = %q, want abrir", got)
	}
	if got := v.Word(CommandClose); got != "cerrar" {
		t.Errorf("Word(close) = %q, want cerrar", got)
	}
	if got := v.Word(CommandNone); got != "" {
		t.Errorf("Word(none) = %q, want empty", got)
	}
	if got := v.Status(true); got != "abierta" {
		t.Errorf("Status(true) = %q, want abierta", got)
	}
	if got := v.Status(false); got != "cerrada" {
		t.Errorf("Status(false) = %q, want cerrada", got)
	}
}

func TestNewParser_UnknownMode(t *testing.T) {
	v, _ := VocabularyFor(config.DeviceTypeChapa)
	if _, err := NewParser(v, "chapa_principal", "regex"); !errors.Is(err, ErrUnknownMatchMode) {
		t.Errorf("NewParser() error = %v, want ErrUnknownMatchMode", err)
	}
}

func TestParser_Structured(t *testing.T) {
	v, _ := VocabularyFor(config.DeviceTypeChapa)
	p, err := NewParser(v, "chapa_principal", config.MatchStructured)
	if err != nil {
		t.Fatalf("NewParser() error = %v", err)
	}

	tests := []struct {
		name       string
		payload    string
		wantCmd    Command
		wantReason string
	}{
		{name: "open", payload: `{"action":"abrir"}`, wantCmd: CommandOpen},
		{name: "close", payload: `{"action":"cerrar"}`, wantCmd: CommandClose},
		{name: "open for us", payload: `{"action":"abrir","deviceId":"chapa_principal"}`, wantCmd: CommandOpen},
		{name: "surrounding whitespace", payload: "  {\"action\":\"cerrar\"}\n", wantCmd: CommandClose},
		{name: "extra fields", payload: `{"action":"abrir","by":"admin","ts":1}`, wantCmd: CommandOpen},
		{name: "other device", payload: `{"action":"abrir","deviceId":"chapa_cocina"}`, wantReason: ReasonDeviceMismatch},
		{name: "empty device id is not ours", payload: `{"action":"abrir","deviceId":""}`, wantReason: ReasonDeviceMismatch},
		{name: "raw word", payload: "abrir", wantReason: ReasonNotObject},
		{name: "json string", payload: `"abrir"`, wantReason: ReasonNotObject},
		{name: "json array", payload: `["abrir"]`, wantReason: ReasonNotObject},
		{name: "malformed", payload: `{"action":`, wantReason: ReasonNotObject},
		{name: "empty", payload: "", wantReason: ReasonNotObject},
		{name: "unknown action", payload: `{"action":"status"}`, wantReason: ReasonUnknownAction},
		{name: "case sensitive", payload: `{"action":"ABRIR"}`, wantReason: ReasonUnknownAction},
		{name: "missing action", payload: `{"deviceId":"chapa_principal"}`, wantReason: ReasonUnknownAction},
		{name: "word elsewhere", payload: `{"note":"abrir"}`, wantReason: ReasonUnknownAction},
		{name: "other vocabulary", payload: `{"action":"encender"}`, wantReason: ReasonUnknownAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, reason := p.Parse(tt.payload)
			if cmd != tt.wantCmd {
				t.Errorf("Parse(%q) cmd = %v, want %v", tt.payload, cmd, tt.wantCmd)
			}
			if reason != tt.wantReason {
				t.Errorf("Parse(%q) reason = %q, want %q", tt.payload, reason, tt.wantReason)
			}
		})
	}
}

func TestParser_Substring(t *testing.T) {
	v, _ := VocabularyFor(config.DeviceTypeChapa)
	p, err := NewParser(v, "chapa_principal", config.MatchSubstring)
	if err != nil {
		t.Fatalf("NewParser() error = %v", err)
	}

	tests := []struct {
		name    string
		payload string
		want    Command
	}{
		{name: "bare open", payload: "abrir", want: CommandOpen},
		{name: "bare close", payload: "cerrar", want: CommandClose},
		{name: "embedded in json", payload: `{"action":"abrir"}`, want: CommandOpen},
		{name: "embedded in prose", payload: "por favor cerrar la puerta", want: CommandClose},
		{name: "open wins over close", payload: "cerrar y luego abrir", want: CommandOpen},
		{name: "case sensitive", payload: "ABRIR", want: CommandNone},
		{name: "deviceId not checked", payload: `{"action":"abrir","deviceId":"otra"}`, want: CommandOpen},
		{name: "no word", payload: "hola", want: CommandNone},
		{name: "empty", payload: "", want: CommandNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, reason := p.Parse(tt.payload)
			if cmd != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.payload, cmd, tt.want)
			}
			if cmd == CommandNone && reason != ReasonNoCommandWord {
				t.Errorf("Parse(%q) reason = %q, want %q", tt.payload, reason, ReasonNoCommandWord)
			}
		})
	}
}

func TestParser_LuzVocabulary(t *testing.T) {
	v, _ := VocabularyFor(config.DeviceTypeLuz)
	p, err := NewParser(v, "luz_sala", config.MatchStructured)
	if err != nil {
		t.Fatalf("NewParser() error = %v", err)
	}

	if cmd, _ := p.Parse(`{"action":"encender"}`); cmd != CommandOpen {
		t.Errorf("Parse(encender) = %v, want open", cmd)
	}
	if cmd, _ := p.Parse(`{"action":"apagar"}`); cmd != CommandClose {
		t.Errorf("Parse(apagar) = %v, want close", cmd)
	}
	if cmd, _ := p.Parse(`{"action":"abrir"}`); cmd != CommandNone {
		t.Errorf("Parse(abrir) on luz = %v, want none", cmd)
	}
}

func TestCommand_String(t *testing.T) {
	tests := map[Command]string{CommandOpen: "open", CommandClose: "close", CommandNone: "none"}
	for cmd, want := range tests {
		if got := cmd.String(); got != want {
			t.Errorf("Command(%d).String() = %q, want %q", cmd, got, want)
		}
	}
}

func TestEncodeMessages(t *testing.T) {
	if got, want := encodeRegister("chapa_principal"), `{"action":"register","deviceId":"chapa_principal"}`; got != want {
		t.Errorf("encodeRegister() = %s, want %s", got, want)
	}
	if got, want := encodeStatus("chapa_principal", "abierta"), `{"deviceId":"chapa_principal","status":"abierta"}`; got != want {
		t.Errorf("encodeStatus() = %s, want %s", got, want)
	}
	// Ids are escaped, never spliced raw.
	if got, want := encodeRegister(`a"b`), `{"action":"register","deviceId":"a\"b"}`; got != want {
		t.Errorf("encodeRegister() = %s, want %s", got, want)
	}
}
