package api

type (
	// KeyboardRef is a step's keyboard declaration: either the name of
	// a registered keyboard or an inline spec
	KeyboardRef struct {
		Name    string      `json:"name,omitempty"`
		Buttons [][]string  `json:"buttons,omitempty"`
		Options []string    `json:"options,omitempty"`
		Inline  []InlineBtn `json:"inline,omitempty"`
	}

	// InlineBtn declares an interactive control whose payload goes
	// through the callback data store
	InlineBtn struct {
		Text    string `json:"text"`
		Data    string `json:"data,omitempty"`
		Handler string `json:"handler,omitempty"`
		Params  Params `json:"params,omitempty"`
		Answer  any    `json:"answer,omitempty"`
		Goto    Path   `json:"goto,omitempty"`
	}

	// Button is one built keyboard control ready for dispatch. Callback
	// holds the short opaque key resolving to the stored payload
	Button struct {
		Text     string `json:"text"`
		Callback string `json:"callback,omitempty"`
	}

	// Keyboard is the built, network-neutral keyboard handed to a
	// bridge alongside a parcel
	Keyboard struct {
		Buttons [][]Button `json:"buttons,omitempty"`
		Options []string   `json:"options,omitempty"`
	}

	// CallbackData is the whitelisted payload persisted behind an
	// interactive control's opaque key
	CallbackData struct {
		Data    string `json:"data,omitempty"`
		Handler string `json:"handler,omitempty"`
		Params  Params `json:"params,omitempty"`
		Answer  any    `json:"answer,omitempty"`
		Path    Path   `json:"path,omitempty"`
	}
)

// KeyboardOneTime marks a keyboard that should be removed after first use
const KeyboardOneTime = "oneTime"

// KeyboardRemove marks a built keyboard that carries no controls and
// instructs the bridge to clear the one currently shown
const KeyboardRemove = "remove"

// IsOneTime reports whether the keyboard declares the oneTime option
func (r *KeyboardRef) IsOneTime() bool {
	if r == nil {
		return false
	}
	for _, opt := range r.Options {
		if opt == KeyboardOneTime {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the built keyboard has no controls
func (k *Keyboard) IsEmpty() bool {
	return k == nil || len(k.Buttons) == 0
}
