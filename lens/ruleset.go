package lens

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/domlens/a11y"
	"github.com/hazyhaar/domlens/dom"
	"github.com/hazyhaar/domlens/guard"
	"github.com/hazyhaar/domlens/lens/internal/config"
	"github.com/hazyhaar/domlens/overlay"
)

// FallbackClass marks overlays from rulesets that name no class of their own.
const FallbackClass = "domlens-mark"

// Ruleset is a compiled marking pass: the targets to select, the info
// pipeline that labels them, and the marker class stamped on the result.
type Ruleset struct {
	Name      string
	Class     string
	Draggable bool

	targets    []overlay.Target
	getInfo    func(el dom.Element, t *overlay.Target) *overlay.Info
	evalInfo   func(info *overlay.Info, t *overlay.Target)
	formatInfo func(info *overlay.Info) string
}

// CompileRuleset turns one configuration entry into a runnable ruleset.
//
// A preset reference adopts that preset's targets and info pipeline, with
// the configured class overriding the preset's marker class. Explicit rules
// become targets with a generic pipeline built from each rule's name and
// note. The marker class is validated here, before it can reach a selector
// or an injected script.
func CompileRuleset(rc config.RulesetConfig) (*Ruleset, error) {
	if rc.Preset != "" {
		p, ok := a11y.Lookup(rc.Preset)
		if !ok {
			return nil, fmt.Errorf("lens: ruleset %q: unknown preset %q (have %s)",
				rc.Name, rc.Preset, strings.Join(a11y.Names(), ", "))
		}
		class := rc.Class
		if class == "" {
			class = p.MarkerClass
		}
		if err := guard.MarkerClass(class); err != nil {
			return nil, fmt.Errorf("lens: ruleset %q: %w", rc.Name, err)
		}
		name := rc.Name
		if name == "" {
			name = p.Name
		}
		return &Ruleset{
			Name:       name,
			Class:      class,
			Draggable:  rc.Draggable,
			targets:    p.Targets,
			getInfo:    p.GetInfo,
			evalInfo:   p.EvalInfo,
			formatInfo: p.FormatInfo,
		}, nil
	}

	if len(rc.Rules) == 0 {
		return nil, fmt.Errorf("lens: ruleset %q: no preset and no rules", rc.Name)
	}
	class := rc.Class
	if class == "" {
		class = FallbackClass
	}
	if err := guard.MarkerClass(class); err != nil {
		return nil, fmt.Errorf("lens: ruleset %q: %w", rc.Name, err)
	}

	targets := make([]overlay.Target, 0, len(rc.Rules))
	for i, rule := range rc.Rules {
		if strings.TrimSpace(rule.Selector) == "" {
			return nil, fmt.Errorf("lens: ruleset %q: rule %d has no selector", rc.Name, i)
		}
		targets = append(targets, overlay.Target{
			Selector: rule.Selector,
			Filter:   compileWhen(rule.When),
			Name:     rule.Name,
			Note:     rule.Note,
		})
	}
	return &Ruleset{
		Name:       rc.Name,
		Class:      class,
		Draggable:  rc.Draggable,
		targets:    targets,
		getInfo:    ruleInfo,
		formatInfo: ruleLabel,
	}, nil
}

// PresetRuleset wraps a built-in preset as a ruleset without going through
// a configuration file. An empty class keeps the preset's own marker class.
func PresetRuleset(name, class string, draggable bool) (*Ruleset, error) {
	return CompileRuleset(config.RulesetConfig{
		Name:      name,
		Preset:    name,
		Class:     class,
		Draggable: draggable,
	})
}

// Targets returns the compiled targets in rule order.
func (r *Ruleset) Targets() []overlay.Target { return r.targets }

// DisableLabels drops the label formatter; overlays render as bare boxes.
func (r *Ruleset) DisableLabels() { r.formatInfo = nil }

// AddOptions assembles engine options for an add pass with this ruleset.
func (r *Ruleset) AddOptions(stylesheet string) overlay.AddOptions {
	return overlay.AddOptions{
		Class:      r.Class,
		Stylesheet: stylesheet,
		GetInfo:    r.getInfo,
		EvalInfo:   r.evalInfo,
		FormatInfo: r.formatInfo,
		Draggable:  r.Draggable,
	}
}

// InspectOptions assembles read-only inspect options for this ruleset.
func (r *Ruleset) InspectOptions(maxSnippet int) overlay.InspectOptions {
	return overlay.InspectOptions{
		GetInfo:    r.getInfo,
		EvalInfo:   r.evalInfo,
		FormatInfo: r.formatInfo,
		MaxSnippet: maxSnippet,
	}
}

// compileWhen folds a rule's conditions into one element filter. All
// conditions must hold; a nil return means the rule matches unconditionally.
func compileWhen(whens []config.WhenConfig) func(dom.Element) bool {
	var preds []func(dom.Element) bool
	for _, w := range whens {
		preds = append(preds, whenPredicates(w)...)
	}
	if len(preds) == 0 {
		return nil
	}
	return func(el dom.Element) bool {
		for _, p := range preds {
			if !p(el) {
				return false
			}
		}
		return true
	}
}

func whenPredicates(w config.WhenConfig) []func(dom.Element) bool {
	var preds []func(dom.Element) bool
	if name := w.AttrPresent; name != "" {
		preds = append(preds, func(el dom.Element) bool {
			v, err := el.Attr(name)
			return err == nil && v != nil
		})
	}
	if name := w.AttrAbsent; name != "" {
		preds = append(preds, func(el dom.Element) bool {
			v, err := el.Attr(name)
			return err == nil && v == nil
		})
	}
	if eq := w.AttrEquals; eq != nil {
		preds = append(preds, func(el dom.Element) bool {
			v, err := el.Attr(eq.Name)
			return err == nil && v != nil && *v == eq.Value
		})
	}
	if tag := w.ParentTag; tag != "" {
		preds = append(preds, func(el dom.Element) bool {
			ok, err := overlay.HasParentTag(el, tag)
			return err == nil && ok
		})
	}
	return preds
}

// ruleInfo is the generic info extractor for explicit rules: the rule name
// becomes the role, the element text becomes the label.
func ruleInfo(el dom.Element, t *overlay.Target) *overlay.Info {
	info := &overlay.Info{Role: t.Name}
	if info.Role == "" {
		info.Role = el.Tag()
	}
	if text, err := el.Text(); err == nil {
		text = strings.Join(strings.Fields(text), " ")
		if len(text) > 80 {
			text = text[:80] + "..."
		}
		info.Label = text
	}
	if t.Note != "" {
		info.Notes = append(info.Notes, t.Note)
	}
	return info
}

// ruleLabel renders generic rule info as "role: label (note; note)".
func ruleLabel(info *overlay.Info) string {
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
	return s
}
