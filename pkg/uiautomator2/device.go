package uiautomator2

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Back presses the back button.
func (c *Client) Back(ctx context.Context) error {
	_, err := c.request(ctx, "POST", c.sessionPath("/back"), nil)
	return err
}

// PressKeyCode presses a key by key code.
func (c *Client) PressKeyCode(ctx context.Context, keyCode int) error {
	req := KeyCodeRequest{KeyCode: keyCode}
	_, err := c.request(ctx, "POST", c.sessionPath("/appium/device/press_keycode"), req)
	return err
}

// GetClipboard returns the clipboard text.
func (c *Client) GetClipboard(ctx context.Context) (string, error) {
	data, err := c.request(ctx, "POST", c.sessionPath("/appium/device/get_clipboard"), map[string]string{"contentType": "plaintext"})
	if err != nil {
		return "", err
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", err
	}

	b64, ok := resp.Value.(string)
	if !ok {
		return "", nil
	}

	decoded, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return b64, nil // Return as-is if not base64
	}
	return string(decoded), nil
}

// SetClipboard sets the clipboard text.
func (c *Client) SetClipboard(ctx context.Context, text string) error {
	req := ClipboardRequest{
		Content:     base64.StdEncoding.EncodeToString([]byte(text)),
		ContentType: "plaintext",
	}
	_, err := c.request(ctx, "POST", c.sessionPath("/appium/device/set_clipboard"), req)
	return err
}

// Source returns the UI hierarchy as XML.
func (c *Client) Source(ctx context.Context) (string, error) {
	data, err := c.request(ctx, "GET", c.sessionPath("/source"), nil)
	if err != nil {
		return "", err
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", err
	}

	source, ok := resp.Value.(string)
	if !ok {
		return "", fmt.Errorf("unexpected source response")
	}
	return source, nil
}

// WindowSize returns the screen size in pixels.
func (c *Client) WindowSize(ctx context.Context) (int, int, error) {
	data, err := c.request(ctx, "GET", c.sessionPath("/window/rect"), nil)
	if err != nil {
		return 0, 0, err
	}

	var resp struct {
		Value WindowRect `json:"value"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return 0, 0, err
	}
	if resp.Value.Width <= 0 || resp.Value.Height <= 0 {
		return 0, 0, fmt.Errorf("invalid window size %dx%d", resp.Value.Width, resp.Value.Height)
	}

	return resp.Value.Width, resp.Value.Height, nil
}
