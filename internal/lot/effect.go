package lot

// EffectKind is a screen update a host applies after a transition.
type EffectKind int

const (
	// EffectClearInput empties the input field.
	EffectClearInput EffectKind = iota

	// EffectCountChanged updates the "<count>/<max>" counter of the active lot.
	EffectCountChanged

	// EffectInputDisabled disables the input field; the active lot is full.
	EffectInputDisabled

	// EffectInputEnabled re-enables the input field.
	EffectInputEnabled

	// EffectLotSealed reports that lot Effect.Lot was closed.
	EffectLotSealed

	// EffectNotify shows Effect.Message to the operator as an error notice.
	EffectNotify
)

func (k EffectKind) String() string {
	switch k {
	case EffectClearInput:
		return "clear-input"
	case EffectCountChanged:
		return "count-changed"
	case EffectInputDisabled:
		return "input-disabled"
	case EffectInputEnabled:
		return "input-enabled"
	case EffectLotSealed:
		return "lot-sealed"
	case EffectNotify:
		return "notify"
	default:
		return "unknown"
	}
}

// Effect is one screen update. Only the fields relevant to Kind are set.
type Effect struct {
	Kind    EffectKind
	Lot     int
	Count   int
	Max     int
	Message string
}

// rejected is the effect list of every rejected submission: the input is
// cleared and the operator is told why.
func rejected(err *ValidationError) []Effect {
	return []Effect{
		{Kind: EffectClearInput},
		{Kind: EffectNotify, Message: err.Message},
	}
}

// HasEffect reports whether effects contains an effect of the given kind.
func HasEffect(effects []Effect, kind EffectKind) bool {
	for _, e := range effects {
		if e.Kind == kind {
			return true
		}
	}
	return false
}
