package settings

import (
	"errors"
	"fmt"
	"strconv"

	"guardbot/pkg/tgui"
)

// Callback scopes and actions used by the wizard keyboard.
const (
	scopeSettings = "settings"
	scopeInterval = "interval"

	actionInterval = "interval"
	actionText     = "text"
	actionImage    = "image"
	actionCancel   = "cancel"
)

// ErrMalformedPayload marks callback data that does not match any wizard
// button. Stale keyboards and forged callbacks both land here; handlers
// answer the callback and leave the user's state untouched.
var ErrMalformedPayload = errors.New("settings: malformed callback payload")

// Action is a decoded wizard callback.
type Action struct {
	Kind ActionKind
	// Minutes is set for KindPickInterval.
	Minutes int
}

type ActionKind string

const (
	KindChooseInterval ActionKind = "choose_interval"
	KindChooseText     ActionKind = "choose_text"
	KindChooseImage    ActionKind = "choose_image"
	KindCancel         ActionKind = "cancel"
	KindPickInterval   ActionKind = "pick_interval"
)

// ParseCallback decodes wizard callback data. Anything that is not an exact
// wizard payload returns ErrMalformedPayload.
func ParseCallback(data string) (Action, error) {
	if len(data) > tgui.MaxCallbackDataLen {
		return Action{}, fmt.Errorf("%w: %d bytes", ErrMalformedPayload, len(data))
	}
	scope, action, payload, ok := tgui.Split(data)
	if !ok {
		return Action{}, fmt.Errorf("%w: %q", ErrMalformedPayload, data)
	}
	switch scope {
	case scopeSettings:
		if payload != "" {
			return Action{}, fmt.Errorf("%w: %q", ErrMalformedPayload, data)
		}
		switch action {
		case actionInterval:
			return Action{Kind: KindChooseInterval}, nil
		case actionText:
			return Action{Kind: KindChooseText}, nil
		case actionImage:
			return Action{Kind: KindChooseImage}, nil
		case actionCancel:
			return Action{Kind: KindCancel}, nil
		}
	case scopeInterval:
		if payload != "" {
			return Action{}, fmt.Errorf("%w: %q", ErrMalformedPayload, data)
		}
		n, err := strconv.Atoi(action)
		if err != nil {
			return Action{}, fmt.Errorf("%w: %q", ErrMalformedPayload, data)
		}
		if reason := ValidateInterval(n); reason != "" {
			return Action{}, fmt.Errorf("%w: %q (%s)", ErrMalformedPayload, data, reason)
		}
		return Action{Kind: KindPickInterval, Minutes: n}, nil
	}
	return Action{}, fmt.Errorf("%w: %q", ErrMalformedPayload, data)
}
