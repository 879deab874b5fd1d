package engine

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"iotinerary/pkg/geo"
	"iotinerary/pkg/model"
)

var validAnchors = map[string]bool{
	"center": true, "top": true, "bottom": true, "left": true, "right": true,
	"top-left": true, "top-right": true, "bottom-left": true, "bottom-right": true,
}

// MarkerSpec is a declarative marker descriptor. Adapters render it; the
// controller only supplies the click behavior.
type MarkerSpec struct {
	ID       string       `json:"id"`
	Position model.LngLat `json:"position"`
	// IconSVG is inline SVG markup for the marker element.
	IconSVG string `json:"icon"`
	Anchor  string `json:"anchor"`
	Title   string `json:"title,omitempty"`
	OnClick func() `json:"-"`
}

// Validate checks position, anchor and that the icon is a single SVG element.
func (s MarkerSpec) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidMarker)
	}
	if !geo.ValidCoordinate(s.Position.Lng, s.Position.Lat) {
		return fmt.Errorf("%w: position %s out of range", ErrInvalidMarker, s.Position)
	}
	if s.Anchor != "" && !validAnchors[s.Anchor] {
		return fmt.Errorf("%w: unknown anchor %q", ErrInvalidMarker, s.Anchor)
	}
	return ValidateIcon(s.IconSVG)
}

// ValidateIcon parses markup and requires exactly one top-level <svg> element.
func ValidateIcon(markup string) error {
	if strings.TrimSpace(markup) == "" {
		return fmt.Errorf("%w: empty icon", ErrInvalidMarker)
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMarker, err)
	}

	var roots []*html.Node
	for _, n := range nodes {
		switch n.Type {
		case html.ElementNode:
			roots = append(roots, n)
		case html.TextNode:
			if strings.TrimSpace(n.Data) != "" {
				return fmt.Errorf("%w: stray text in icon", ErrInvalidMarker)
			}
		}
	}
	if len(roots) != 1 || roots[0].Data != "svg" {
		return fmt.Errorf("%w: icon must be a single <svg> element", ErrInvalidMarker)
	}
	if roots[0].FirstChild == nil {
		return fmt.Errorf("%w: icon has no content", ErrInvalidMarker)
	}
	return nil
}
