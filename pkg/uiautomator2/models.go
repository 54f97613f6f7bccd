package uiautomator2

import "fmt"

// Locator strategies understood by the server.
const (
	StrategyID              = "id"
	StrategyClassName       = "class name"
	StrategyXPath           = "xpath"
	StrategyUiAutomator     = "-android uiautomator"
	StrategyAccessibilityID = "accessibility id"
)

// Android key codes used by cartpilot.
const (
	KeyCodeHome  = 3
	KeyCodeBack  = 4
	KeyCodeEnter = 66
)

// Response is the generic W3C envelope.
type Response struct {
	SessionID string      `json:"sessionId,omitempty"`
	Value     interface{} `json:"value"`
}

// ServerError is a non-2xx answer from the server.
type ServerError struct {
	Status  int
	Type    string
	Message string
}

func (e *ServerError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("server error %d: %s", e.Status, e.Message)
}

// Capabilities for session creation.
type Capabilities struct {
	PlatformName         string `json:"platformName"`
	DeviceName           string `json:"appium:deviceName,omitempty"`
	AppPackage           string `json:"appium:appPackage,omitempty"`
	NewCommandTimeout    int    `json:"appium:newCommandTimeout,omitempty"`
	DisableIdLocatorAuto bool   `json:"appium:disableIdLocatorAutocompletion,omitempty"`
}

// SessionRequest wraps capabilities the way the server expects.
type SessionRequest struct {
	Capabilities struct {
		AlwaysMatch Capabilities `json:"alwaysMatch"`
	} `json:"capabilities"`
}

// NewSessionRequest builds a request for caps.
func NewSessionRequest(caps Capabilities) SessionRequest {
	var r SessionRequest
	r.Capabilities.AlwaysMatch = caps
	return r
}

// PointModel is an absolute screen coordinate.
type PointModel struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ElementModel references a server-side element.
type ElementModel struct {
	ELEMENT string `json:"ELEMENT"`
}

// RectModel is an element rectangle.
type RectModel struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ClickRequest is the body of /appium/gestures/click.
type ClickRequest struct {
	Origin *ElementModel `json:"origin,omitempty"`
	Offset *PointModel   `json:"offset,omitempty"`
}

// LongClickRequest is the body of /appium/gestures/long_click.
type LongClickRequest struct {
	Origin   *ElementModel `json:"origin,omitempty"`
	Offset   *PointModel   `json:"offset,omitempty"`
	Duration int           `json:"duration,omitempty"`
}

// KeyCodeRequest is the body of press_keycode.
type KeyCodeRequest struct {
	KeyCode int `json:"keycode"`
}

// ClipboardRequest is the body of set_clipboard.
type ClipboardRequest struct {
	Content     string `json:"content"`
	ContentType string `json:"contentType"`
}

// FindElementRequest is the body of /element and /elements.
type FindElementRequest struct {
	Strategy string `json:"strategy"`
	Selector string `json:"selector"`
	Context  string `json:"context,omitempty"`
}

// SendKeysRequest is the body of /element/{id}/value.
type SendKeysRequest struct {
	Text    string `json:"text"`
	Replace bool   `json:"replace"`
}

// ActionsRequest is a W3C actions payload.
type ActionsRequest struct {
	Actions []ActionSequence `json:"actions"`
}

// ActionSequence is one input source's ordered actions.
type ActionSequence struct {
	Type       string            `json:"type"`
	ID         string            `json:"id"`
	Parameters map[string]string `json:"parameters,omitempty"`
	Actions    []Action          `json:"actions"`
}

// Action is one W3C pointer action.
type Action struct {
	Type     string `json:"type"`
	Duration int    `json:"duration,omitempty"`
	X        int    `json:"x,omitempty"`
	Y        int    `json:"y,omitempty"`
	Button   int    `json:"button"`
	Origin   string `json:"origin,omitempty"`
}

// WindowRect is the size of the current window.
type WindowRect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}
