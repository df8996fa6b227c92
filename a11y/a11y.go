// Package a11y ships the built-in accessibility presets: the target sets
// and info callbacks for the page structures an audit marks first
// (landmarks, headings, images, form fields, and lists). Each preset plugs
// straight into an overlay engine pass; callers with different needs build
// their own overlay.Target slices instead.
package a11y

import (
	"sort"
	"strings"

	"github.com/hazyhaar/domlens/dom"
	"github.com/hazyhaar/domlens/overlay"
)

// Preset bundles the targets and info pipeline for one kind of audit pass.
type Preset struct {
	Name        string
	Description string
	MarkerClass string
	Targets     []overlay.Target
	GetInfo     func(el dom.Element, t *overlay.Target) *overlay.Info
	EvalInfo    func(info *overlay.Info, t *overlay.Target)
	FormatInfo  func(info *overlay.Info) string
}

// AddOptions assembles engine options for this preset. An empty class falls
// back to the preset's marker class.
func (p Preset) AddOptions(class, stylesheet string, draggable bool) overlay.AddOptions {
	if class == "" {
		class = p.MarkerClass
	}
	return overlay.AddOptions{
		Class:      class,
		Stylesheet: stylesheet,
		GetInfo:    p.GetInfo,
		EvalInfo:   p.EvalInfo,
		FormatInfo: p.FormatInfo,
		Draggable:  draggable,
	}
}

// InspectOptions assembles read-only inspect options for this preset.
func (p Preset) InspectOptions() overlay.InspectOptions {
	return overlay.InspectOptions{
		GetInfo:    p.GetInfo,
		EvalInfo:   p.EvalInfo,
		FormatInfo: p.FormatInfo,
	}
}

// All returns every built-in preset.
func All() []Preset {
	return []Preset{Landmarks(), Headings(), Images(), FormFields(), Lists()}
}

// Lookup finds a preset by name, case-insensitive.
func Lookup(name string) (Preset, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range All() {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// Names lists the built-in preset names, sorted.
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, p := range all {
		names[i] = p.Name
	}
	sort.Strings(names)
	return names
}

// attr returns the value of an attribute, or empty when absent or
// unreadable.
func attr(el dom.Element, name string) string {
	v, err := el.Attr(name)
	if err != nil || v == nil {
		return ""
	}
	return *v
}

// hasAttr reports attribute presence regardless of value.
func hasAttr(el dom.Element, name string) bool {
	v, err := el.Attr(name)
	return err == nil && v != nil
}

// firstAttr returns the first non-empty attribute value among names.
func firstAttr(el dom.Element, names ...string) string {
	for _, n := range names {
		if v := attr(el, n); v != "" {
			return v
		}
	}
	return ""
}

// elementText returns the element's text content with whitespace collapsed.
func elementText(el dom.Element) string {
	text, err := el.Text()
	if err != nil {
		return ""
	}
	return compact(text)
}

// compact collapses runs of whitespace into single spaces.
func compact(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// clip shortens a label to at most n runes.
func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n])) + "..."
}

// finishInfo is the shared evaluation step: it normalizes the label, fills
// the role from the target name when the extractor left it empty, and
// carries the target's note into the info record.
func finishInfo(info *overlay.Info, t *overlay.Target) {
	if info == nil {
		return
	}
	info.Label = clip(compact(info.Label), 80)
	if info.Role == "" && t != nil && t.Name != "" {
		info.Role = t.Name
	}
	if t != nil && t.Note != "" {
		info.Notes = append(info.Notes, t.Note)
	}
}

// formatLabel renders an info record into overlay label text.
func formatLabel(info *overlay.Info) string {
	if info == nil {
		return ""
	}
	s := info.Role
	if info.Label != "" {
		if s != "" {
			s += ": "
		}
		s += info.Label
	}
	if len(info.Notes) > 0 {
		s += " (" + strings.Join(info.Notes, "; ") + ")"
	}
	return strings.TrimSpace(s)
}
