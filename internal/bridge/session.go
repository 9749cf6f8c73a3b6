package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/FernandoPintoL/socket-rentals/internal/infrastructure/config"
	"github.com/FernandoPintoL/socket-rentals/internal/journal"
)

// Defaults applied when the corresponding Options field is zero.
const (
	defaultStatusInterval = 30 * time.Second
	defaultPollInterval   = 250 * time.Millisecond

	// sinkTimeout bounds a single journal write from the loop.
	sinkTimeout = 2 * time.Second
)

// Sender delivers one text frame to the server.
type Sender interface {
	SendText(msg string) error
}

// Actuator drives the relay.
type Actuator interface {
	Open() error
	Close() error
	IsOpen() bool
}

// Journal records what the session did.
type Journal interface {
	Record(ctx context.Context, e journal.Entry) error
}

// Mirror republishes outbound messages to a second channel (MQTT).
type Mirror interface {
	PublishState(deviceID string, payload []byte) error
	PublishEvent(deviceID string, payload []byte) error
}

// Metrics records relay activity as time series.
type Metrics interface {
	WriteRelayState(deviceID string, open bool, status string)
	WriteCommand(deviceID, command string)
	WriteConnection(deviceID string, connected bool)
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Options configures a Session.
type Options struct {
	// DeviceID identifies this device to the server (required).
	DeviceID string

	// DeviceType selects the vocabulary. Defaults to "chapa".
	DeviceType string

	// Match is config.MatchStructured (default) or config.MatchSubstring.
	Match string

	// StatusInterval between periodic status reports. Defaults to 30s.
	StatusInterval time.Duration

	// PollInterval is how often Run checks the status timer. Defaults to 250ms.
	PollInterval time.Duration

	// ReportActualState makes the periodic report follow the relay instead
	// of always reporting the inactive word.
	ReportActualState bool

	Relay  Actuator // required
	Sender Sender   // required

	// Optional sinks.
	Journal Journal
	Mirror  Mirror
	Metrics Metrics
	Logger  Logger

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// OptionsFrom fills the device, command and reporting fields from config.
// Relay, Sender and the sinks are left for the caller.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		DeviceID:          cfg.Device.ID,
		DeviceType:        cfg.Device.Type,
		Match:             cfg.Commands.Match,
		StatusInterval:    cfg.Reporting.StatusInterval,
		PollInterval:      cfg.Reporting.PollInterval,
		ReportActualState: cfg.Reporting.ReportActualState,
	}
}

// Snapshot is a point-in-time copy of the session's observable state.
type Snapshot struct {
	DeviceID      string    `json:"device_id"`
	DeviceType    string    `json:"device_type"`
	Connected     bool      `json:"connected"`
	ServerURL     string    `json:"server_url,omitempty"`
	RelayOpen     bool      `json:"relay_open"`
	LastCommand   string    `json:"last_command,omitempty"`
	LastCommandAt time.Time `json:"last_command_at,omitzero"`
	LastStatusAt  time.Time `json:"last_status_at,omitzero"`
	Registrations uint64    `json:"registrations"`
	Commands      uint64    `json:"commands"`
	Ignored       uint64    `json:"ignored"`
	StatusReports uint64    `json:"status_reports"`
	Received      uint64    `json:"received"`
	Sent          uint64    `json:"sent"`
	SendErrors    uint64    `json:"send_errors"`
	RelayErrors   uint64    `json:"relay_errors"`
}

// Session holds the state of the single device this agent controls.
type Session struct {
	opts   Options
	vocab  Vocabulary
	parser *Parser

	lastStatus time.Time

	snapMu sync.RWMutex
	snap   Snapshot
}

// NewSession validates opts and creates a session. The status timer starts
// now, so the first report goes out one interval later.
//
// Parameters:
//   - opts: Device identity, relay, sender and optional sinks
//
// Returns:
//   - *Session: Ready to receive events
//   - error: If a required field is missing or a value is unknown
func NewSession(opts Options) (*Session, error) {
	if opts.DeviceID == "" {
		return nil, fmt.Errorf("bridge: device id is required")
	}
	if opts.Relay == nil {
		return nil, fmt.Errorf("bridge: relay is required")
	}
	if opts.Sender == nil {
		return nil, fmt.Errorf("bridge: sender is required")
	}
	if opts.DeviceType == "" {
		opts.DeviceType = config.DeviceTypeChapa
	}
	if opts.Match == "" {
		opts.Match = config.MatchStructured
	}
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = defaultStatusInterval
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	vocab, err := VocabularyFor(opts.DeviceType)
	if err != nil {
		return nil, err
	}
	parser, err := NewParser(vocab, opts.DeviceID, opts.Match)
	if err != nil {
		return nil, err
	}

	return &Session{
		opts:       opts,
		vocab:      vocab,
		parser:     parser,
		lastStatus: opts.Now(),
		snap: Snapshot{
			DeviceID:   opts.DeviceID,
			DeviceType: opts.DeviceType,
			RelayOpen:  opts.Relay.IsOpen(),
		},
	}, nil
}

// Vocabulary returns the words this session uses.
func (s *Session) Vocabulary() Vocabulary {
	return s.vocab
}

// Run processes events one at a time, in order, and polls the status timer
// between them. It returns nil when ctx is cancelled or events is closed.
func (s *Session) Run(ctx context.Context, events <-chan Event) error {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	s.logInfo("bridge loop started",
		"device_id", s.opts.DeviceID,
		"device_type", s.opts.DeviceType,
		"match", s.opts.Match,
		"status_interval", s.opts.StatusInterval.String(),
	)

	for {
		select {
		case <-ctx.Done():
			s.logInfo("bridge loop stopped")
			return nil
		case ev, ok := <-events:
			if !ok {
				s.logInfo("event channel closed, bridge loop stopping")
				return nil
			}
			s.HandleEvent(ctx, ev)
			s.Tick(ctx, s.opts.Now())
		case <-ticker.C:
			s.Tick(ctx, s.opts.Now())
		}
	}
}

// HandleEvent applies one event.
func (s *Session) HandleEvent(ctx context.Context, ev Event) {
	switch e := ev.(type) {
	case Disconnected:
		s.handleDisconnected(ctx, e)
	case Connected:
		s.handleConnected(ctx, e)
	case TextPayload:
		s.handleText(ctx, e)
	default:
		s.logWarn("unknown event", "type", fmt.Sprintf("%T", ev))
	}
}

func (s *Session) handleDisconnected(ctx context.Context, e Disconnected) {
	s.logInfo("disconnected from server", "error", e.Err)

	s.updateSnapshot(func(snap *Snapshot) {
		snap.Connected = false
	})

	if s.opts.Metrics != nil {
		s.opts.Metrics.WriteConnection(s.opts.DeviceID, false)
	}
	s.record(ctx, journal.Entry{Kind: journal.KindConnection, Status: "disconnected"})
}

func (s *Session) handleConnected(ctx context.Context, e Connected) {
	s.logInfo("connected to server", "url", e.URL)

	msg := encodeRegister(s.opts.DeviceID)
	s.send(msg)

	s.updateSnapshot(func(snap *Snapshot) {
		snap.Connected = true
		snap.ServerURL = e.URL
		snap.Registrations++
	})

	if s.opts.Mirror != nil {
		if err := s.opts.Mirror.PublishEvent(s.opts.DeviceID, []byte(msg)); err != nil {
			s.logDebug("mirror publish failed", "error", err)
		}
	}
	if s.opts.Metrics != nil {
		s.opts.Metrics.WriteConnection(s.opts.DeviceID, true)
	}
	s.record(ctx, journal.Entry{Kind: journal.KindRegister, Payload: msg})
}

func (s *Session) handleText(ctx context.Context, e TextPayload) {
	s.updateSnapshot(func(snap *Snapshot) { snap.Received++ })

	cmd, reason := s.parser.Parse(e.Data)
	if cmd == CommandNone {
		s.logDebug("ignoring message", "reason", reason, "source", e.Source, "payload", e.Data)
		s.updateSnapshot(func(snap *Snapshot) { snap.Ignored++ })
		s.record(ctx, journal.Entry{Kind: journal.KindIgnored, Status: reason, Payload: e.Data})
		return
	}

	word := s.vocab.Word(cmd)
	s.logInfo("command received", "command", word, "source", e.Source)

	// The relay must settle before the server hears about it.
	var err error
	if cmd == CommandOpen {
		err = s.opts.Relay.Open()
	} else {
		err = s.opts.Relay.Close()
	}
	if err != nil {
		s.logError("relay write failed", "command", word, "error", err)
		s.updateSnapshot(func(snap *Snapshot) { snap.RelayErrors++ })
		s.record(ctx, journal.Entry{Kind: journal.KindCommand, Command: word, Status: "error: " + err.Error(), Payload: e.Data})
		return
	}

	status := s.vocab.Status(cmd == CommandOpen)
	msg := encodeStatus(s.opts.DeviceID, status)
	s.send(msg)

	now := s.opts.Now()
	s.updateSnapshot(func(snap *Snapshot) {
		snap.Commands++
		snap.LastCommand = word
		snap.LastCommandAt = now
		snap.RelayOpen = cmd == CommandOpen
	})

	s.mirrorState(msg)
	if s.opts.Metrics != nil {
		s.opts.Metrics.WriteCommand(s.opts.DeviceID, word)
		s.opts.Metrics.WriteRelayState(s.opts.DeviceID, cmd == CommandOpen, status)
	}
	s.record(ctx, journal.Entry{Kind: journal.KindCommand, Command: word, Status: status, Payload: e.Data})
}

// Tick sends the periodic status report when at least one interval has
// passed since the last one. It reports whether a report was sent.
func (s *Session) Tick(ctx context.Context, now time.Time) bool {
	if now.Sub(s.lastStatus) < s.opts.StatusInterval {
		return false
	}
	s.lastStatus = now

	open := s.opts.Relay.IsOpen()
	status := s.vocab.Inactive
	if s.opts.ReportActualState {
		status = s.vocab.Status(open)
	}

	msg := encodeStatus(s.opts.DeviceID, status)
	s.send(msg)
	s.logDebug("status sent", "status", status)

	s.updateSnapshot(func(snap *Snapshot) {
		snap.StatusReports++
		snap.LastStatusAt = now
		snap.RelayOpen = open
	})

	s.mirrorState(msg)
	if s.opts.Metrics != nil {
		s.opts.Metrics.WriteRelayState(s.opts.DeviceID, open, status)
	}
	s.record(ctx, journal.Entry{Kind: journal.KindStatus, Status: status})
	return true
}

// Snapshot returns a copy of the session's counters and state.
func (s *Session) Snapshot() Snapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap
}

// send is fire-and-forget: a failure is counted and logged, nothing else.
func (s *Session) send(msg string) {
	if err := s.opts.Sender.SendText(msg); err != nil {
		s.logDebug("send failed", "error", err, "message", msg)
		s.updateSnapshot(func(snap *Snapshot) { snap.SendErrors++ })
		return
	}
	s.updateSnapshot(func(snap *Snapshot) { snap.Sent++ })
}

func (s *Session) mirrorState(msg string) {
	if s.opts.Mirror == nil {
		return
	}
	if err := s.opts.Mirror.PublishState(s.opts.DeviceID, []byte(msg)); err != nil {
		s.logDebug("mirror publish failed", "error", err)
	}
}

func (s *Session) record(ctx context.Context, e journal.Entry) {
	if s.opts.Journal == nil {
		return
	}
	e.DeviceID = s.opts.DeviceID
	e.CreatedAt = s.opts.Now()

	ctx, cancel := context.WithTimeout(ctx, sinkTimeout)
	defer cancel()
	if err := s.opts.Journal.Record(ctx, e); err != nil {
		s.logDebug("journal write failed", "kind", e.Kind, "error", err)
	}
}

func (s *Session) updateSnapshot(fn func(snap *Snapshot)) {
	s.snapMu.Lock()
	fn(&s.snap)
	s.snapMu.Unlock()
}

func (s *Session) logDebug(msg string, keysAndValues ...any) {
	if s.opts.Logger != nil {
		s.opts.Logger.Debug(msg, keysAndValues...)
	}
}

func (s *Session) logInfo(msg string, keysAndValues ...any) {
	if s.opts.Logger != nil {
		s.opts.Logger.Info(msg, keysAndValues...)
	}
}

func (s *Session) logWarn(msg string, keysAndValues ...any) {
	if s.opts.Logger != nil {
		s.opts.Logger.Warn(msg, keysAndValues...)
	}
}

func (s *Session) logError(msg string, keysAndValues ...any) {
	if s.opts.Logger != nil {
		s.opts.Logger.Error(msg, keysAndValues...)
	}
}
