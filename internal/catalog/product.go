package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Product is one catalog entry. Precio is kept as text; nothing does
// arithmetic on it.
type Product struct {
	ID            string   `json:"id"`
	Nombre        string   `json:"nombre"`
	Precio        string   `json:"precio"`
	Categoria     string   `json:"categoria"`
	Imagen        string   `json:"imagen"`
	Estado        string   `json:"estado"`
	Descripcion   string   `json:"descripcion"`
	ImagenesExtra []string `json:"imagenes_extra"`
}

// Patch carries caller-supplied product fields. A nil field was not supplied
// (absent or null in the request body).
type Patch struct {
	Nombre        *string
	Precio        *string
	Categoria     *string
	Imagen        *string
	Estado        *string
	Descripcion   *string
	ImagenesExtra *[]string
}

// NewProduct builds a product from a create request. Unsupplied text fields
// are empty and ImagenesExtra is an empty list.
func NewProduct(p Patch) Product {
	return p.Apply(Product{ImagenesExtra: []string{}})
}

// Apply overlays the supplied fields on prev and keeps prev's value for the
// rest. The result always has a non-nil ImagenesExtra.
func (p Patch) Apply(prev Product) Product {
	out := prev
	setString(&out.Nombre, p.Nombre)
	setString(&out.Precio, p.Precio)
	setString(&out.Categoria, p.Categoria)
	setString(&out.Imagen, p.Imagen)
	setString(&out.Estado, p.Estado)
	setString(&out.Descripcion, p.Descripcion)

	if p.ImagenesExtra != nil {
		out.ImagenesExtra = append([]string{}, *p.ImagenesExtra...)
	} else {
		out.ImagenesExtra = append([]string{}, prev.ImagenesExtra...)
	}
	return out
}

func (p Patch) Empty() bool {
	return p.Nombre == nil && p.Precio == nil && p.Categoria == nil && p.Imagen == nil &&
		p.Estado == nil && p.Descripcion == nil && p.ImagenesExtra == nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// UnmarshalJSON accepts numbers and booleans for text fields and stores
// their literal text, so {"precio": 10} keeps "10". Unknown keys are ignored.
func (p *Patch) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	fields := []struct {
		key string
		dst **string
	}{
		{"nombre", &p.Nombre},
		{"precio", &p.Precio},
		{"categoria", &p.Categoria},
		{"imagen", &p.Imagen},
		{"estado", &p.Estado},
		{"descripcion", &p.Descripcion},
	}
	for _, f := range fields {
		v, ok := raw[f.key]
		if !ok {
			continue
		}
		s, set, err := textValue(v)
		if err != nil {
			return fmt.Errorf("%s: %w", f.key, err)
		}
		if set {
			*f.dst = &s
		}
	}

	if v, ok := raw["imagenes_extra"]; ok {
		var list []string
		if err := json.Unmarshal(v, &list); err != nil {
			return fmt.Errorf("imagenes_extra: %w", err)
		}
		if list != nil {
			p.ImagenesExtra = &list
		}
	}
	return nil
}

func textValue(raw json.RawMessage) (string, bool, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return "", false, err
	}

	switch t := v.(type) {
	case nil:
		return "", false, nil
	case string:
		return t, true, nil
	case json.Number:
		return t.String(), true, nil
	case bool:
		return strconv.FormatBool(t), true, nil
	default:
		return "", false, fmt.Errorf("expected text, got %T", v)
	}
}
