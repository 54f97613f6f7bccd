// Package flow describes cartpilot jobs: which orchestrator to run and with
// what parameters. Jobs are read from YAML files, one job per document.
package flow

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownKind is returned for flow names that are not one of the four
// orchestrators.
var ErrUnknownKind = errors.New("unknown flow kind")

// Kind selects an orchestrator.
type Kind int

const (
	Purchase Kind = iota + 1
	Favorite
	FavoriteSettlement
	Delivery
)

var kindNames = map[Kind]string{
	Purchase:           "purchase",
	Favorite:           "favorite",
	FavoriteSettlement: "favorite-settlement",
	Delivery:           "delivery",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a flow name to a Kind. Matching ignores case and accepts
// "_" for "-".
func ParseKind(s string) (Kind, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	switch norm {
	case "purchase", "payment", "buy":
		return Purchase, nil
	case "favorite", "favourite":
		return Favorite, nil
	case "favorite-settlement", "settlement":
		return FavoriteSettlement, nil
	case "delivery", "delivery-tracking":
		return Delivery, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k *Kind) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseKind(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*k = v
	return nil
}

func (k Kind) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

// VerifyMode is how an orchestrator treats an outcome page with neither a
// success nor a failure marker.
type VerifyMode int

const (
	// FailOpen accepts an ambiguous page as success.
	FailOpen VerifyMode = iota
	// FailClosed requires an explicit success marker.
	FailClosed
)

func (m VerifyMode) String() string {
	if m == FailOpen {
		return "fail-open"
	}
	return "fail-closed"
}

// Decide resolves a verification given which markers were seen.
func (m VerifyMode) Decide(success, failure bool) bool {
	switch {
	case failure:
		return false
	case success:
		return true
	}
	return m == FailOpen
}

// Verify returns the verification policy of each flow. Purchases land on an
// externally observed payment screen, so only an explicit failure counts.
// Favorites require the app's confirmation.
func (k Kind) Verify() VerifyMode {
	switch k {
	case Purchase, FavoriteSettlement:
		return FailOpen
	}
	return FailClosed
}

// VariantPolicy selects how a product's SKU is negotiated.
type VariantPolicy string

const (
	// VariantNone keeps the default SKU.
	VariantNone VariantPolicy = "none"
	// VariantRange walks the carousel until a price in the job range shows.
	VariantRange VariantPolicy = "range"
	// VariantCheapest walks the carousel and returns to the cheapest SKU.
	VariantCheapest VariantPolicy = "cheapest"
)

func (p VariantPolicy) valid() bool {
	return p == VariantNone || p == VariantRange || p == VariantCheapest
}
