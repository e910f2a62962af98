// Package tui is the interactive scan station: a single input line fed by a
// barcode scanner, the running lot counter, and the lot listing.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmr-tortoise/lotscan/internal/host"
	"github.com/mmr-tortoise/lotscan/internal/lot"
	"github.com/mmr-tortoise/lotscan/internal/model"
	"github.com/mmr-tortoise/lotscan/internal/workbook"
)

type noticeKind int

const (
	noticeNone noticeKind = iota
	noticeInfo
	noticeError
)

// Options carries what the station needs besides the session.
type Options struct {
	// Station is written as the workbook creator.
	Station string

	// Now stamps exports. Nil means time.Now.
	Now func() time.Time
}

type exportedMsg struct {
	path   string
	lots   int
	tokens int
}

type exportFailedMsg struct {
	err error
}

// Model is the bubbletea model of the scan station. It owns the lot.Session
// for the lifetime of the program and applies the effects every transition
// returns: the input line is cleared after an accepted scan, disabled when
// the active lot is full, and re-enabled by a reset.
//
// Keys:
//
//	enter   submit the input line (a token, or a block in paste mode)
//	ctrl+r  reset the active lot
//	ctrl+e  export every lot as an Excel workbook through the host.Saver
//	esc     quit
//
// Exports run as a tea.Cmd off the update loop; the result comes back as a
// message and is shown as a notice.
type Model struct {
	ctx     context.Context
	session lot.Session
	saver   host.Saver
	opts    Options

	input      textinput.Model
	notice     string
	noticeKind noticeKind
	exporting  bool
	width      int
	height     int
	quitting   bool
}

// NewModel returns a station for s. Exports are written through saver and
// are cancelled with ctx. The input line starts focused unless the active
// lot is already full.
func NewModel(ctx context.Context, s lot.Session, saver host.Saver, opts Options) Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	label := s.Config().Kind.Label()
	ti := textinput.New()
	ti.Placeholder = fmt.Sprintf("scan %s...", label)
	ti.Prompt = label + ": "
	if s.Config().Mode == model.ModePaste {
		ti.Placeholder = "paste QR code data..."
		ti.Prompt = "QR: "
	} else {
		ti.CharLimit = s.Config().Kind.TokenLength() + 8
	}
	if s.InputEnabled() {
		ti.Focus()
	}

	return Model{
		ctx:     ctx,
		session: s,
		saver:   saver,
		opts:    opts,
		input:   ti,
		width:   80,
		height:  24,
	}
}

// Init starts the cursor blink of the input line.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Session returns the current scanning state.
func (m Model) Session() lot.Session {
	return m.session
}

// Notice returns the message currently shown to the operator.
func (m Model) Notice() string {
	return m.notice
}

// Update handles key presses, window resizes and export results. Every other
// message goes to the input line.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(10, msg.Width-20)
		return m, nil

	case exportedMsg:
		m.exporting = false
		m.setNotice(noticeInfo, fmt.Sprintf("Saved %d lots (%d scans) to %s", msg.lots, msg.tokens, msg.path))
		return m, nil

	case exportFailedMsg:
		m.exporting = false
		if errors.Is(msg.err, workbook.ErrNothingToExport) {
			m.setNotice(noticeError, "No data to export.")
		} else {
			m.setNotice(noticeError, msg.err.Error())
		}
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// a notice stays up until the next key press
	if key != "enter" {
		m.clearNotice()
	}

	switch key {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "ctrl+r":
		next, effects := m.session.ResetLot()
		m.session = next
		m.apply(effects)
		return m, nil

	case "ctrl+e":
		if m.exporting {
			return m, nil
		}
		m.exporting = true
		m.setNotice(noticeInfo, "Exporting...")
		return m, m.exportCmd()

	case "enter":
		m.clearNotice()
		if !m.session.InputEnabled() {
			m.setNotice(noticeError, m.fullNotice())
			return m, nil
		}
		next, effects, _ := m.session.Submit(m.input.Value())
		m.session = next
		m.apply(effects)
		return m, nil
	}

	if !m.session.InputEnabled() {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// apply turns transition effects into screen updates.
func (m *Model) apply(effects []lot.Effect) {
	for _, e := range effects {
		switch e.Kind {
		case lot.EffectClearInput:
			m.input.SetValue("")
		case lot.EffectInputDisabled:
			m.input.Blur()
		case lot.EffectInputEnabled:
			m.input.Focus()
		case lot.EffectLotSealed:
			m.setNotice(noticeInfo, fmt.Sprintf("LOT %d closed", e.Lot))
		case lot.EffectNotify:
			m.setNotice(noticeError, e.Message)
		}
	}
}

func (m Model) exportCmd() tea.Cmd {
	ctx, saver := m.ctx, m.saver
	lots := m.session.Lots()
	opts := workbook.Options{
		SessionID: m.session.ID(),
		Creator:   m.opts.Station,
		Now:       m.opts.Now(),
	}
	return func() tea.Msg {
		art, err := workbook.Export(lots, opts)
		if err != nil {
			return exportFailedMsg{err: err}
		}
		path, err := saver.Save(ctx, art.FileName, art.Data)
		if err != nil {
			return exportFailedMsg{err: err}
		}
		return exportedMsg{path: path, lots: art.Lots, tokens: art.Tokens}
	}
}

func (m *Model) setNotice(kind noticeKind, text string) {
	m.notice = text
	m.noticeKind = kind
}

func (m *Model) clearNotice() {
	m.notice = ""
	m.noticeKind = noticeNone
}

func (m Model) fullNotice() string {
	cfg := m.session.Config()
	return fmt.Sprintf("Lot size limit reached. You can only scan %d %ss.", cfg.MaxSize, cfg.Kind.Label())
}

// View renders the header with the active lot counter, the tail of the lot
// listing, the input line (or the full-lot hint), the current notice and the
// key help.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	cfg := m.session.Config()

	b.WriteString(titleStyle.Render("lotscan"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %s · %s · session %s", cfg.Mode, cfg.Kind, shortID(m.session.ID()))))
	b.WriteString("\n")

	counter := counterStyle.Render(m.session.CountLabel())
	if !m.session.InputEnabled() {
		counter = fullStyle.Render(m.session.CountLabel() + " FULL")
	}
	b.WriteString(headerStyle.Render(fmt.Sprintf("LOT %d", m.session.Active().Number)) + " " + counter + "\n\n")

	for _, line := range m.listingLines() {
		if strings.HasPrefix(line, "=") {
			line = lotHeaderStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")

	if m.session.InputEnabled() {
		b.WriteString(inputStyle.Render(m.input.View()))
	} else {
		b.WriteString(fullStyle.Render("lot full, press ctrl+r to reset"))
	}
	b.WriteString("\n")

	switch m.noticeKind {
	case noticeError:
		b.WriteString(errorStyle.Render(m.notice))
	case noticeInfo:
		b.WriteString(infoStyle.Render(m.notice))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("  Enter: submit  ctrl+r: reset lot  ctrl+e: export  Esc: quit"))

	return b.String()
}

// listingLines returns the tail of the lot listing that fits the screen.
func (m Model) listingLines() []string {
	text := strings.TrimRight(lot.FormatListing(m.session.Lots()), "\n")
	if text == "" {
		return []string{dimStyle.Render("no scans yet")}
	}
	lines := strings.Split(text, "\n")
	room := max(1, m.height-8)
	if len(lines) > room {
		lines = lines[len(lines)-room:]
	}
	return lines
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Run starts the station full screen and returns the session as it was when
// the operator quit. When ctx is cancelled the error wraps ErrCancelled.
func Run(ctx context.Context, s lot.Session, saver host.Saver, opts Options) (lot.Session, error) {
	p := tea.NewProgram(NewModel(ctx, s, saver, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return s, programError(err)
	}
	return final.(Model).session, nil
}
