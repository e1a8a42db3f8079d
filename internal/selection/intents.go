package selection

// IntentKind names an action requested from an overlay.
type IntentKind int

const (
	IntentEdit IntentKind = iota
	IntentDelete
)

func (k IntentKind) String() string {
	switch k {
	case IntentEdit:
		return "edit"
	case IntentDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Intent asks whichever component owns the entity to act on it.
type Intent struct {
	Kind IntentKind
	ID   string
}

// OnIntent subscribes to edit and delete requests.
func (c *Coordinator) OnIntent(fn func(Intent)) (cancel func()) {
	return c.intents.Subscribe(fn)
}

// RequestEdit publishes an edit request for the open entity.
func (c *Coordinator) RequestEdit() bool {
	return c.request(IntentEdit)
}

// RequestDelete publishes a delete request for the open entity.
func (c *Coordinator) RequestDelete() bool {
	return c.request(IntentDelete)
}

func (c *Coordinator) request(kind IntentKind) bool {
	st := c.State()
	if st.ID == "" || st.Phase == PhaseClosing || st.Phase == PhaseClosed {
		return false
	}
	c.intents.Publish(Intent{Kind: kind, ID: st.ID})
	return true
}
