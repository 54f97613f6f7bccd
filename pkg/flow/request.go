package flow

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/cartpilot/pkg/price"
)

// Request is one job.
type Request struct {
	SourcePath string `yaml:"-"`

	Name string `yaml:"name"`
	Kind Kind   `yaml:"flow"`

	// Keyword is searched for by purchase and favorite jobs.
	Keyword string `yaml:"keyword"`
	// Count is the number of products wanted. For delivery jobs it caps the
	// parcels collected; zero means all.
	Count int `yaml:"count"`

	// PriceRange bounds acceptable prices. MaxPrice is the legacy single
	// upper bound and is folded into PriceRange by Normalize.
	PriceRange price.Range `yaml:"priceRange"`
	MaxPrice   float64     `yaml:"maxPrice"`

	Variant VariantPolicy `yaml:"variant"`

	// MaxAttempts bounds the products opened before giving up.
	MaxAttempts int `yaml:"maxAttempts"`

	// AllowRepeat lets a purchase job buy products already in the
	// purchased history.
	AllowRepeat bool `yaml:"allowRepeat"`
}

// Label returns the job name, or the flow kind when unnamed.
func (r *Request) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Kind.String()
}

// Normalize validates r and fills defaults: the legacy price becomes a
// range, Count defaults to 1 and MaxAttempts to five tries per product.
func (r *Request) Normalize() error {
	if _, ok := kindNames[r.Kind]; !ok {
		return fmt.Errorf("%w: missing flow", ErrUnknownKind)
	}
	if r.Count < 0 {
		return fmt.Errorf("count must be >= 0")
	}

	switch r.Kind {
	case Purchase, Favorite:
		if strings.TrimSpace(r.Keyword) == "" {
			return fmt.Errorf("%s job needs a keyword", r.Kind)
		}
		if r.Count == 0 {
			r.Count = 1
		}
		fallthrough
	case FavoriteSettlement:
		rng, err := price.Normalize(r.PriceRange, r.MaxPrice)
		if err != nil {
			return fmt.Errorf("%s job: %w", r.Kind, err)
		}
		r.PriceRange = rng
		r.MaxPrice = 0
	}

	if r.Variant == "" {
		r.Variant = VariantNone
		if r.Kind == Purchase {
			r.Variant = VariantRange
		}
	}
	if !r.Variant.valid() {
		return fmt.Errorf("unknown variant policy %q", r.Variant)
	}
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = r.Count * 5
		if r.MaxAttempts == 0 {
			r.MaxAttempts = 50
		}
	}
	return nil
}

// Parse decodes every YAML document in data as a Request and normalizes it.
func Parse(data []byte) ([]Request, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var out []Request
	for i := 0; ; i++ {
		var r Request
		err := dec.Decode(&r)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("job %d: %w", i+1, err)
		}
		if err := r.Normalize(); err != nil {
			return nil, fmt.Errorf("job %d: %w", i+1, err)
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no jobs found")
	}
	return out, nil
}

// Load reads a job file.
func Load(path string) ([]Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}
	reqs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for i := range reqs {
		reqs[i].SourcePath = path
	}
	return reqs, nil
}
