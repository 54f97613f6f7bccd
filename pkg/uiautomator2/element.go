package uiautomator2

import (
	"context"
	"encoding/json"
	"fmt"
)

// Element is a server-side element reference.
type Element struct {
	id     string
	client *Client
}

// ID returns the server element id.
func (e *Element) ID() string { return e.id }

func parseElementID(v map[string]interface{}) string {
	if id, ok := v["ELEMENT"].(string); ok {
		return id
	}
	if id, ok := v["element-6066-11e4-a52e-4f735466cecf"].(string); ok {
		return id
	}
	return ""
}

// FindElement finds the first element matching the locator.
func (c *Client) FindElement(ctx context.Context, strategy, selector string) (*Element, error) {
	req := FindElementRequest{Strategy: strategy, Selector: selector}
	data, err := c.request(ctx, "POST", c.sessionPath("/element"), req)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Value map[string]interface{} `json:"value"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse element response: %w", err)
	}

	id := parseElementID(resp.Value)
	if id == "" {
		return nil, fmt.Errorf("element not found: %s", selector)
	}
	return &Element{id: id, client: c}, nil
}

// ActiveElement returns the focused element.
func (c *Client) ActiveElement(ctx context.Context) (*Element, error) {
	data, err := c.request(ctx, "GET", c.sessionPath("/element/active"), nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Value map[string]interface{} `json:"value"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse element response: %w", err)
	}

	id := parseElementID(resp.Value)
	if id == "" {
		return nil, fmt.Errorf("no active element")
	}
	return &Element{id: id, client: c}, nil
}

// SendKeys replaces the element's text.
func (e *Element) SendKeys(ctx context.Context, text string) error {
	req := SendKeysRequest{Text: text, Replace: true}
	_, err := e.client.request(ctx, "POST", e.client.sessionPath("/element/"+e.id+"/value"), req)
	return err
}

// Clear empties an input element.
func (e *Element) Clear(ctx context.Context) error {
	_, err := e.client.request(ctx, "POST", e.client.sessionPath("/element/"+e.id+"/clear"), nil)
	return err
}

// InputText types text into the focused input field.
func (c *Client) InputText(ctx context.Context, text string) error {
	elem, err := c.ActiveElement(ctx)
	if err != nil {
		return err
	}
	return elem.SendKeys(ctx, text)
}
