package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind classifies a decrypted payload.
type Kind int

const (
	KindUnknown Kind = iota
	KindOpen
	KindOpenAck
	KindHeartbeat
	KindHeartbeatAck
	KindClose
	KindMove
	KindClick
)

var kindNames = [...]string{
	KindUnknown:      "unknown",
	KindOpen:         "open",
	KindOpenAck:      "open_ack",
	KindHeartbeat:    "heartbeat",
	KindHeartbeatAck: "heartbeat_ack",
	KindClose:        "close",
	KindMove:         "move",
	KindClick:        "click",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// ClickKind identifies a click action.
type ClickKind int

const (
	ClickLeft ClickKind = iota
	ClickLeftDown
	ClickLeftUp
	ClickRight
	ClickRightDown
	ClickRightUp
	ClickMiddle
)

var clickNames = [...]string{
	ClickLeft:      "left",
	ClickLeftDown:  "left-down",
	ClickLeftUp:    "left-up",
	ClickRight:     "right",
	ClickRightDown: "right-down",
	ClickRightUp:   "right-up",
	ClickMiddle:    "middle",
}

func (c ClickKind) String() string {
	if c < 0 || int(c) >= len(clickNames) {
		return "click(" + strconv.Itoa(int(c)) + ")"
	}
	return clickNames[c]
}

// ClickKinds returns every click kind in declaration order.
func ClickKinds() []ClickKind {
	out := make([]ClickKind, len(clickNames))
	for i := range clickNames {
		out[i] = ClickKind(i)
	}
	return out
}

// ErrUnknownClick is returned for unrecognized click names.
var ErrUnknownClick = errors.New("protocol: unknown click kind")

// ParseClickKind parses a click name such as "left" or "right-down".
func ParseClickKind(s string) (ClickKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range clickNames {
		if name == s {
			return ClickKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownClick, s)
}

// Tokens are the literal message prefixes exchanged with clients.
type Tokens struct {
	OpenRequest      string
	OpenAck          string
	HeartbeatRequest string
	HeartbeatAck     string
	CloseRequest     string
	MoveRelative     string
	Clicks           map[ClickKind]string
}

// DefaultTokens returns the tokens spoken by existing clients.
func DefaultTokens() Tokens {
	return Tokens{
		OpenRequest:      "OPEN",
		OpenAck:          "OPEN-ACK",
		HeartbeatRequest: "HEART",
		HeartbeatAck:     "BEAT",
		CloseRequest:     "CLOSE",
		MoveRelative:     "M",
		Clicks: map[ClickKind]string{
			ClickLeft:      "C_left_F",
			ClickLeftDown:  "C_left_D",
			ClickLeftUp:    "C_left_U",
			ClickRight:     "C_right_F",
			ClickRightDown: "C_right_D",
			ClickRightUp:   "C_right_U",
			ClickMiddle:    "C_middle_F",
		},
	}
}

type entry struct {
	token []byte
	kind  Kind
	click ClickKind
}

// Vocabulary classifies payloads and builds outbound messages.
// It is immutable after construction and safe for concurrent use.
type Vocabulary struct {
	tokens  Tokens
	entries []entry // longest token first
}

// NewVocabulary validates tokens and builds a Vocabulary.
func NewVocabulary(tokens Tokens) (*Vocabulary, error) {
	if err := tokens.Validate(); err != nil {
		return nil, err
	}

	clicks := make(map[ClickKind]string, len(tokens.Clicks))
	for k, v := range tokens.Clicks {
		clicks[k] = v
	}
	tokens.Clicks = clicks

	v := &Vocabulary{tokens: tokens}
	add := func(tok string, kind Kind, click ClickKind) {
		v.entries = append(v.entries, entry{token: []byte(tok), kind: kind, click: click})
	}
	add(tokens.OpenRequest, KindOpen, 0)
	add(tokens.OpenAck, KindOpenAck, 0)
	add(tokens.HeartbeatRequest, KindHeartbeat, 0)
	add(tokens.HeartbeatAck, KindHeartbeatAck, 0)
	add(tokens.CloseRequest, KindClose, 0)
	add(tokens.MoveRelative, KindMove, 0)
	for _, kind := range ClickKinds() {
		if tok, ok := clicks[kind]; ok {
			add(tok, KindClick, kind)
		}
	}
	sort.SliceStable(v.entries, func(i, j int) bool {
		return len(v.entries[i].token) > len(v.entries[j].token)
	})
	return v, nil
}

// MustDefaultVocabulary returns the default vocabulary.
func MustDefaultVocabulary() *Vocabulary {
	v, err := NewVocabulary(DefaultTokens())
	if err != nil {
		panic(err)
	}
	return v
}

// Validate rejects empty or duplicate tokens and unknown click kinds.
func (t Tokens) Validate() error {
	seen := make(map[string]string)
	check := func(name, tok string) error {
		if tok == "" {
			return fmt.Errorf("protocol: token %s is empty", name)
		}
		if strings.ContainsAny(tok, " ,") {
			return fmt.Errorf("protocol: token %s=%q contains a space or comma", name, tok)
		}
		if prev, ok := seen[tok]; ok {
			return fmt.Errorf("protocol: token %q used by both %s and %s", tok, prev, name)
		}
		seen[tok] = name
		return nil
	}

	for _, f := range []struct{ name, tok string }{
		{"open_request", t.OpenRequest},
		{"open_ack", t.OpenAck},
		{"heartbeat_request", t.HeartbeatRequest},
		{"heartbeat_ack", t.HeartbeatAck},
		{"close_request", t.CloseRequest},
		{"move_relative", t.MoveRelative},
	} {
		if err := check(f.name, f.tok); err != nil {
			return err
		}
	}
	for _, kind := range ClickKinds() {
		tok, ok := t.Clicks[kind]
		if !ok {
			continue
		}
		if err := check("clicks."+kind.String(), tok); err != nil {
			return err
		}
	}
	for kind := range t.Clicks {
		if kind < 0 || int(kind) >= len(clickNames) {
			return fmt.Errorf("%w: %d", ErrUnknownClick, int(kind))
		}
	}
	return nil
}

// Tokens returns a copy of the configured tokens.
func (v *Vocabulary) Tokens() Tokens {
	t := v.tokens
	t.Clicks = make(map[ClickKind]string, len(v.tokens.Clicks))
	for k, tok := range v.tokens.Clicks {
		t.Clicks[k] = tok
	}
	return t
}

// Classify returns the kind of the longest token that prefixes payload.
func (v *Vocabulary) Classify(payload []byte) Kind {
	kind, _ := v.classify(payload)
	return kind
}

func (v *Vocabulary) classify(payload []byte) (Kind, ClickKind) {
	for _, e := range v.entries {
		if bytes.HasPrefix(payload, e.token) {
			return e.kind, e.click
		}
	}
	return KindUnknown, 0
}

// ParseClick reports the click kind carried by payload.
func (v *Vocabulary) ParseClick(payload []byte) (ClickKind, bool) {
	kind, click := v.classify(payload)
	return click, kind == KindClick
}

// OpenRequest returns the open-request message.
func (v *Vocabulary) OpenRequest() []byte { return []byte(v.tokens.OpenRequest) }

// OpenAck returns the open-ack message.
func (v *Vocabulary) OpenAck() []byte { return []byte(v.tokens.OpenAck) }

// HeartbeatRequest returns the heartbeat-request message.
func (v *Vocabulary) HeartbeatRequest() []byte { return []byte(v.tokens.HeartbeatRequest) }

// HeartbeatAck returns the heartbeat-ack message.
func (v *Vocabulary) HeartbeatAck() []byte { return []byte(v.tokens.HeartbeatAck) }

// CloseRequest returns the close-request message.
func (v *Vocabulary) CloseRequest() []byte { return []byte(v.tokens.CloseRequest) }

// MoveMessage formats a relative move as "<token> <dx>,<dy>".
func (v *Vocabulary) MoveMessage(dx, dy int) []byte {
	b := make([]byte, 0, len(v.tokens.MoveRelative)+16)
	b = append(b, v.tokens.MoveRelative...)
	b = append(b, ' ')
	b = strconv.AppendInt(b, int64(dx), 10)
	b = append(b, ',')
	return strconv.AppendInt(b, int64(dy), 10)
}

// ErrMalformedMove is returned by ParseMove.
var ErrMalformedMove = errors.New("protocol: malformed move message")

// ParseMove is the inverse of MoveMessage.
func (v *Vocabulary) ParseMove(payload []byte) (dx, dy int, err error) {
	rest, ok := bytes.CutPrefix(payload, []byte(v.tokens.MoveRelative))
	if !ok {
		return 0, 0, ErrMalformedMove
	}
	x, y, ok := strings.Cut(strings.TrimSpace(string(rest)), ",")
	if !ok {
		return 0, 0, ErrMalformedMove
	}
	if dx, err = strconv.Atoi(strings.TrimSpace(x)); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrMalformedMove, err)
	}
	if dy, err = strconv.Atoi(strings.TrimSpace(y)); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrMalformedMove, err)
	}
	return dx, dy, nil
}

// ClickMessage returns the token for kind.
func (v *Vocabulary) ClickMessage(kind ClickKind) ([]byte, error) {
	tok, ok := v.tokens.Clicks[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no token configured for %s", ErrUnknownClick, kind)
	}
	return []byte(tok), nil
}
