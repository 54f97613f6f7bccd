package uiautomator2

import "context"

// Click performs a tap at coordinates.
func (c *Client) Click(ctx context.Context, x, y int) error {
	req := ClickRequest{
		Offset: &PointModel{X: x, Y: y},
	}
	_, err := c.request(ctx, "POST", c.sessionPath("/appium/gestures/click"), req)
	return err
}

// LongClick performs a long press at coordinates.
func (c *Client) LongClick(ctx context.Context, x, y, durationMs int) error {
	req := LongClickRequest{
		Offset:   &PointModel{X: x, Y: y},
		Duration: durationMs,
	}
	_, err := c.request(ctx, "POST", c.sessionPath("/appium/gestures/long_click"), req)
	return err
}

// Swipe drags one finger from (x1,y1) to (x2,y2) over durationMs using W3C
// pointer actions.
func (c *Client) Swipe(ctx context.Context, x1, y1, x2, y2, durationMs int) error {
	req := ActionsRequest{
		Actions: []ActionSequence{{
			Type:       "pointer",
			ID:         "finger1",
			Parameters: map[string]string{"pointerType": "touch"},
			Actions: []Action{
				{Type: "pointerMove", X: x1, Y: y1, Origin: "viewport"},
				{Type: "pointerDown"},
				{Type: "pause", Duration: 50},
				{Type: "pointerMove", Duration: durationMs, X: x2, Y: y2, Origin: "viewport"},
				{Type: "pointerUp"},
			},
		}},
	}
	_, err := c.request(ctx, "POST", c.sessionPath("/actions"), req)
	return err
}
