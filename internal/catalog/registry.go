// Package catalog owns the controlled vocabularies that constrain asset
// records: brands, the models offered under each brand, and locations.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrInvalidName      = errors.New("catalog: invalid name")
	ErrInvalidReference = errors.New("catalog: invalid reference")
)

// State is the serializable form of a Registry.
type State struct {
	Brands        []string            `json:"brands"`
	ModelsByBrand map[string][]string `json:"modelsByBrand"`
	Locations     []string            `json:"locations"`
}

func DefaultState() State {
	return State{
		Brands: []string{"Dell", "HP", "Lenovo", "Apple"},
		ModelsByBrand: map[string][]string{
			"Dell":   {"Latitude 3420", "Latitude 5430", "OptiPlex 7090"},
			"HP":     {"EliteDesk 800", "ProBook 450"},
			"Lenovo": {"ThinkPad X1"},
			"Apple":  {"MacBook Pro M2"},
		},
		Locations: []string{"Corporativo", "Naucalpan", "Campo", "Tultitlán"},
	}
}

// Registry keeps every key of its model map present in brands. All
// comparisons are exact and case-sensitive.
type Registry struct {
	brands        []string
	modelsByBrand map[string][]string
	locations     []string
}

// NewRegistry builds a registry from state, dropping blank and duplicate
// entries, creating empty model sets for brands that lack one and
// discarding model sets whose brand is absent.
func NewRegistry(state State) *Registry {
	r := &Registry{modelsByBrand: map[string][]string{}}
	for _, brand := range state.Brands {
		brand = strings.TrimSpace(brand)
		if brand == "" || slices.Contains(r.brands, brand) {
			continue
		}
		r.brands = append(r.brands, brand)
		r.modelsByBrand[brand] = []string{}
		for _, model := range state.ModelsByBrand[brand] {
			model = strings.TrimSpace(model)
			if model == "" || slices.Contains(r.modelsByBrand[brand], model) {
				continue
			}
			r.modelsByBrand[brand] = append(r.modelsByBrand[brand], model)
		}
	}
	for _, location := range state.Locations {
		location = strings.TrimSpace(location)
		if location == "" || slices.Contains(r.locations, location) {
			continue
		}
		r.locations = append(r.locations, location)
	}
	return r
}

func (r *Registry) AddBrand(name string) (bool, error) {
	name, err := cleanName("brand", name)
	if err != nil {
		return false, err
	}
	if slices.Contains(r.brands, name) {
		return false, nil
	}
	r.brands = append(r.brands, name)
	r.modelsByBrand[name] = []string{}
	return true, nil
}

// RemoveBrand drops the brand and its whole model set. Records that still
// name the brand are left alone.
func (r *Registry) RemoveBrand(name string) (bool, error) {
	name, err := cleanName("brand", name)
	if err != nil {
		return false, err
	}
	idx := slices.Index(r.brands, name)
	if idx < 0 {
		return false, nil
	}
	r.brands = slices.Delete(r.brands, idx, idx+1)
	delete(r.modelsByBrand, name)
	return true, nil
}

func (r *Registry) AddModel(brand, name string) (bool, error) {
	brand, err := cleanName("brand", brand)
	if err != nil {
		return false, err
	}
	name, err = cleanName("model", name)
	if err != nil {
		return false, err
	}
	models, ok := r.modelsByBrand[brand]
	if !ok {
		return false, fmt.Errorf("%w: unknown brand %q", ErrInvalidReference, brand)
	}
	if slices.Contains(models, name) {
		return false, nil
	}
	r.modelsByBrand[brand] = append(models, name)
	return true, nil
}

func (r *Registry) RemoveModel(brand, name string) (bool, error) {
	brand, err := cleanName("brand", brand)
	if err != nil {
		return false, err
	}
	name, err = cleanName("model", name)
	if err != nil {
		return false, err
	}
	models := r.modelsByBrand[brand]
	idx := slices.Index(models, name)
	if idx < 0 {
		return false, nil
	}
	r.modelsByBrand[brand] = slices.Delete(models, idx, idx+1)
	return true, nil
}

func (r *Registry) AddLocation(name string) (bool, error) {
	name, err := cleanName("location", name)
	if err != nil {
		return false, err
	}
	if slices.Contains(r.locations, name) {
		return false, nil
	}
	r.locations = append(r.locations, name)
	return true, nil
}

func (r *Registry) RemoveLocation(name string) (bool, error) {
	name, err := cleanName("location", name)
	if err != nil {
		return false, err
	}
	idx := slices.Index(r.locations, name)
	if idx < 0 {
		return false, nil
	}
	r.locations = slices.Delete(r.locations, idx, idx+1)
	return true, nil
}

func (r *Registry) Brands() []string {
	return slices.Clone(r.brands)
}

// ModelsFor returns an empty, non-nil slice for unknown brands.
func (r *Registry) ModelsFor(brand string) []string {
	models, ok := r.modelsByBrand[brand]
	if !ok {
		return []string{}
	}
	return slices.Clone(models)
}

func (r *Registry) Locations() []string {
	return slices.Clone(r.locations)
}

func (r *Registry) HasBrand(brand string) bool {
	return slices.Contains(r.brands, brand)
}

func (r *Registry) HasModel(brand, model string) bool {
	return slices.Contains(r.modelsByBrand[brand], model)
}

func (r *Registry) HasLocation(location string) bool {
	return slices.Contains(r.locations, location)
}

// State returns a deep copy with non-nil collections.
func (r *Registry) State() State {
	state := State{
		Brands:        make([]string, 0, len(r.brands)),
		ModelsByBrand: make(map[string][]string, len(r.modelsByBrand)),
		Locations:     make([]string, 0, len(r.locations)),
	}
	state.Brands = append(state.Brands, r.brands...)
	state.Locations = append(state.Locations, r.locations...)
	for brand, models := range r.modelsByBrand {
		state.ModelsByBrand[brand] = append(make([]string, 0, len(models)), models...)
	}
	return state
}

func (r *Registry) Clone() *Registry {
	return NewRegistry(r.State())
}

func cleanName(kind, raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("%w: %s name is required", ErrInvalidName, kind)
	}
	return name, nil
}
