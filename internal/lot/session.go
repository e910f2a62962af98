package lot

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mmr-tortoise/lotscan/internal/model"
)

// DefaultMaxSize is the number of tokens a lot holds when no size is
// configured. It matches one master carton.
const DefaultMaxSize = 30

// Config holds the scanning rules of a session.
type Config struct {
	// Kind is the identifier being scanned; it fixes the token length.
	Kind model.IdentifierKind

	// MaxSize is the maximum number of tokens in one lot.
	MaxSize int

	// Mode selects single-token or pasted-block ingestion.
	Mode model.IngestMode

	// DuplicateScope controls whether duplicates are checked against the
	// active lot only or against every lot of the session.
	DuplicateScope model.DuplicateScope
}

// DefaultConfig returns the rules of a serial-number carton station.
func DefaultConfig() Config {
	return Config{
		Kind:           model.KindSerial,
		MaxSize:        DefaultMaxSize,
		Mode:           model.ModeSingle,
		DuplicateScope: model.ScopeLot,
	}
}

// Validate checks that every field holds a usable value.
func (c Config) Validate() error {
	if !c.Kind.IsValid() {
		return fmt.Errorf("lot config: invalid identifier kind %q", c.Kind)
	}
	if c.MaxSize < 1 {
		return fmt.Errorf("lot config: max size must be at least 1, got %d", c.MaxSize)
	}
	if !c.Mode.IsValid() {
		return fmt.Errorf("lot config: invalid ingest mode %q", c.Mode)
	}
	if !c.DuplicateScope.IsValid() {
		return fmt.Errorf("lot config: invalid duplicate scope %q", c.DuplicateScope)
	}
	return nil
}

// Lot is a numbered, ordered, duplicate-free batch of tokens.
type Lot struct {
	Number int      `json:"lot"`
	Tokens []string `json:"tokens"`
}

// Count returns the number of tokens in the lot.
func (l Lot) Count() int {
	return len(l.Tokens)
}

// Contains reports whether the token is already in the lot.
func (l Lot) Contains(token string) bool {
	for _, t := range l.Tokens {
		if t == token {
			return true
		}
	}
	return false
}

func (l Lot) copy() Lot {
	return Lot{Number: l.Number, Tokens: append([]string(nil), l.Tokens...)}
}

// State is the scanning state of the active lot.
//
//	Idle → Accepting (count < max) → Full (count == max, input disabled)
//	Full → [reset] → Idle
type State int

const (
	StateIdle State = iota
	StateAccepting
	StateFull
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAccepting:
		return "accepting"
	case StateFull:
		return "full"
	default:
		return "unknown"
	}
}

// Session is the in-memory state of one scanning session: the sealed lots
// and the active lot that receives new tokens.
//
// Session has value semantics. Transitions never modify the receiver; they
// return an updated copy. Sealed lots are immutable once sealed, so copies
// share them safely.
type Session struct {
	id     string
	cfg    Config
	sealed []Lot
	active Lot
}

// NewSession starts an empty session whose first lot is LOT 1.
func NewSession(cfg Config) (Session, error) {
	if err := cfg.Validate(); err != nil {
		return Session{}, err
	}
	return Session{
		id:     uuid.NewString(),
		cfg:    cfg,
		active: Lot{Number: 1},
	}, nil
}

// ID returns the unique identifier of the session.
func (s Session) ID() string { return s.id }

// Config returns the rules the session was created with.
func (s Session) Config() Config { return s.cfg }

// Active returns a copy of the lot currently receiving tokens.
func (s Session) Active() Lot { return s.active.copy() }

// Count returns the number of tokens in the active lot.
func (s Session) Count() int { return s.active.Count() }

// CountLabel renders the active lot counter, e.g. "12/30".
func (s Session) CountLabel() string {
	return fmt.Sprintf("%d/%d", s.active.Count(), s.cfg.MaxSize)
}

// State returns the scanning state of the active lot.
func (s Session) State() State {
	switch n := s.active.Count(); {
	case n == 0:
		return StateIdle
	case n >= s.cfg.MaxSize:
		return StateFull
	default:
		return StateAccepting
	}
}

// InputEnabled reports whether the host should accept further input.
func (s Session) InputEnabled() bool {
	return s.State() != StateFull
}

// Lots returns every lot holding at least one token: the sealed lots in
// order followed by the active lot.
func (s Session) Lots() []Lot {
	lots := make([]Lot, 0, len(s.sealed)+1)
	for _, l := range s.sealed {
		lots = append(lots, l.copy())
	}
	if s.active.Count() > 0 {
		lots = append(lots, s.active.copy())
	}
	return lots
}

// HasData reports whether any lot holds a token.
func (s Session) HasData() bool {
	return len(s.sealed) > 0 || s.active.Count() > 0
}

// Submit ingests one line of operator input. In single mode the line must
// be exactly one token; in paste mode it is a block of digits chunked into
// tokens. On rejection the returned session equals the receiver and the
// error is a *ValidationError.
func (s Session) Submit(raw string) (Session, []Effect, error) {
	if s.cfg.Mode == model.ModePaste {
		return s.submitBlock(raw)
	}
	return s.submitToken(raw)
}

func (s Session) submitToken(raw string) (Session, []Effect, error) {
	token := strings.TrimSpace(raw)
	if verr := s.checkFormat(token); verr != nil {
		return s, rejected(verr), verr
	}
	if verr := s.checkDuplicate(token); verr != nil {
		return s, rejected(verr), verr
	}
	if s.active.Count() >= s.cfg.MaxSize {
		verr := rejectf(ReasonLotFull, token,
			"Lot size limit reached. You can only scan %d %ss.", s.cfg.MaxSize, s.cfg.Kind.Label())
		return s, rejected(verr), verr
	}

	next := s.clone()
	next.active.Tokens = append(next.active.Tokens, token)

	effects := []Effect{
		{Kind: EffectClearInput},
		next.countEffect(),
	}
	if !next.InputEnabled() {
		effects = append(effects, Effect{Kind: EffectInputDisabled})
	}
	return next, effects, nil
}

func (s Session) submitBlock(raw string) (Session, []Effect, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		verr := rejectf(ReasonEmpty, "", "Please enter a valid numeric QR code.")
		return s, rejected(verr), verr
	}
	digits := onlyDigits(trimmed)
	if digits == "" {
		verr := rejectf(ReasonNonNumeric, "", "Please enter a valid numeric QR code.")
		return s, rejected(verr), verr
	}
	size := s.cfg.Kind.TokenLength()
	if len(digits)%size != 0 {
		verr := rejectf(ReasonWrongLength, "",
			"Invalid QR code. %d digits do not split into %d-digit %ss.", len(digits), size, s.cfg.Kind.Label())
		return s, rejected(verr), verr
	}

	// Every block opens its own lot.
	next := s.clone()
	var effects []Effect
	if next.active.Count() > 0 {
		effects = append(effects, Effect{Kind: EffectLotSealed, Lot: next.active.Number})
		next.seal()
	}

	tokens := make([]string, 0, len(digits)/size)
	inBlock := make(map[string]struct{}, len(digits)/size)
	for i := 0; i < len(digits); i += size {
		token := digits[i : i+size]
		if _, dup := inBlock[token]; dup {
			verr := rejectf(ReasonDuplicate, token,
				"Duplicate %s %s in scanned block.", s.cfg.Kind.Label(), token)
			return s, rejected(verr), verr
		}
		if verr := next.checkDuplicate(token); verr != nil {
			return s, rejected(verr), verr
		}
		inBlock[token] = struct{}{}
		tokens = append(tokens, token)
	}

	for _, token := range tokens {
		next.active.Tokens = append(next.active.Tokens, token)
		if next.active.Count() >= next.cfg.MaxSize {
			effects = append(effects, Effect{Kind: EffectLotSealed, Lot: next.active.Number})
			next.seal()
		}
	}
	effects = append(effects, Effect{Kind: EffectClearInput}, next.countEffect())
	return next, effects, nil
}

// ResetLot clears the active lot and re-enables input. A non-empty active
// lot is sealed first, so its number is never handed out again.
func (s Session) ResetLot() (Session, []Effect) {
	next := s.clone()
	var effects []Effect
	if next.active.Count() > 0 {
		effects = append(effects, Effect{Kind: EffectLotSealed, Lot: next.active.Number})
		next.seal()
	}
	effects = append(effects,
		Effect{Kind: EffectClearInput},
		next.countEffect(),
		Effect{Kind: EffectInputEnabled},
	)
	return next, effects
}

// seal moves the active lot into the sealed history and opens the next one.
// It must only be called on a clone.
func (s *Session) seal() {
	s.sealed = append(s.sealed, s.active)
	s.active = Lot{Number: s.active.Number + 1}
}

func (s Session) clone() Session {
	c := s
	c.sealed = append([]Lot(nil), s.sealed...)
	c.active = s.active.copy()
	return c
}

func (s Session) countEffect() Effect {
	return Effect{
		Kind:  EffectCountChanged,
		Lot:   s.active.Number,
		Count: s.active.Count(),
		Max:   s.cfg.MaxSize,
	}
}

func (s Session) checkFormat(token string) *ValidationError {
	label := s.cfg.Kind.Label()
	size := s.cfg.Kind.TokenLength()
	if token == "" {
		return rejectf(ReasonEmpty, "", "Please enter a %s.", label)
	}
	if onlyDigits(token) != token {
		return rejectf(ReasonNonNumeric, token, "Invalid %s. A %s contains digits only.", label, label)
	}
	if len(token) != size {
		return rejectf(ReasonWrongLength, token,
			"Invalid %s. Please enter %s %d-digit numeric %s.", label, article(size), size, label)
	}
	return nil
}

func (s Session) checkDuplicate(token string) *ValidationError {
	label := s.cfg.Kind.Label()
	if s.active.Contains(token) {
		return rejectf(ReasonDuplicate, token, "Duplicate %s. Please scan a unique %s.", label, label)
	}
	if s.cfg.DuplicateScope == model.ScopeSession {
		for _, l := range s.sealed {
			if l.Contains(token) {
				return rejectf(ReasonDuplicate, token,
					"Duplicate %s. %s is already in LOT %d.", label, token, l.Number)
			}
		}
	}
	return nil
}

func onlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// article picks "a" or "an" for a spoken number ("an 11-digit", "a 15-digit").
func article(n int) string {
	switch {
	case n == 8, n == 11, n == 18, n >= 80 && n < 90:
		return "an"
	default:
		return "a"
	}
}
