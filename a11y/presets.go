package a11y

import (
	"fmt"
	"path"
	"strings"

	"github.com/hazyhaar/domlens/dom"
	"github.com/hazyhaar/domlens/overlay"
)

// landmarkTags are the sectioning elements treated as landmark containers
// when deciding whether content sits inside page structure.
var landmarkTags = []string{"header", "nav", "main", "aside", "footer", "section", "article"}

// Landmarks marks the page's landmark regions with their computed roles.
func Landmarks() Preset {
	return Preset{
		Name:        "landmarks",
		Description: "landmark regions: banner, navigation, main, complementary, contentinfo, search, named regions",
		MarkerClass: "domlens-landmark",
		Targets: []overlay.Target{
			{Selector: "header", Name: "banner"},
			{Selector: "nav", Name: "navigation"},
			{Selector: "main", Name: "main"},
			{Selector: "aside", Name: "complementary"},
			{Selector: "footer", Name: "contentinfo"},
			{Selector: "[role=search]", Name: "search"},
			{Selector: "section[aria-label], section[aria-labelledby], [role=region]", Name: "region"},
			{
				Selector: "form",
				Name:     "form",
				// A form is a landmark only when it has an accessible name.
				Filter: func(el dom.Element) bool {
					return hasAttr(el, "aria-label") || hasAttr(el, "aria-labelledby")
				},
			},
		},
		GetInfo:    landmarkInfo,
		EvalInfo:   finishInfo,
		FormatInfo: formatLabel,
	}
}

func landmarkInfo(el dom.Element, t *overlay.Target) *overlay.Info {
	info := &overlay.Info{
		Label:   firstAttr(el, "aria-label", "title"),
		Details: map[string]string{"tag": el.Tag()},
	}
	if role := attr(el, "role"); role != "" {
		info.Details["role"] = role
	}
	if attr(el, "aria-labelledby") != "" && info.Label == "" {
		info.Notes = append(info.Notes, "labelled by reference")
	}

	// header and footer only map to banner/contentinfo at page level;
	// scoped inside sectioning content they are plain structure.
	if t != nil && (t.Name == "banner" || t.Name == "contentinfo") {
		scoped, err := overlay.DescendsFromTag(el, "article", "aside", "main", "nav", "section")
		if err == nil && scoped {
			info.Notes = append(info.Notes, "scoped, not a page landmark")
		}
	}
	return info
}

// Headings marks h1 through h6 and role=heading elements with their level
// and text, flagging empty headings and headings sitting outside any
// landmark container.
func Headings() Preset {
	return Preset{
		Name:        "headings",
		Description: "heading levels h1-h6 with text and structural placement",
		MarkerClass: "domlens-heading",
		Targets: []overlay.Target{
			{Selector: "h1, h2, h3, h4, h5, h6, [role=heading]", Name: "heading"},
		},
		GetInfo:    headingInfo,
		EvalInfo:   finishInfo,
		FormatInfo: formatLabel,
	}
}

func headingInfo(el dom.Element, t *overlay.Target) *overlay.Info {
	level := strings.TrimPrefix(el.Tag(), "h")
	if level == el.Tag() { // a role=heading match; the level comes from aria-level
		if level = attr(el, "aria-level"); level == "" {
			level = "2"
		}
	}
	info := &overlay.Info{
		Role:    "h" + level,
		Label:   elementText(el),
		Details: map[string]string{"level": level},
	}
	if info.Label == "" {
		info.Notes = append(info.Notes, "empty heading")
	}
	inLandmark, err := overlay.DescendsFromTag(el, landmarkTags...)
	if err == nil && !inLandmark {
		info.Notes = append(info.Notes, "outside any landmark")
	}
	return info
}

// Images marks img, svg and role=img elements with their alternative
// text state.
func Images() Preset {
	return Preset{
		Name:        "images",
		Description: "images with their alt text state",
		MarkerClass: "domlens-image",
		Targets: []overlay.Target{
			{Selector: "img, svg, [role=img]", Name: "image"},
		},
		GetInfo:    imageInfo,
		EvalInfo:   finishInfo,
		FormatInfo: formatLabel,
	}
}

func imageInfo(el dom.Element, t *overlay.Target) *overlay.Info {
	info := &overlay.Info{Role: "image", Details: map[string]string{}}
	if src := attr(el, "src"); src != "" {
		info.Details["src"] = src
	}

	alt, err := el.Attr("alt")
	switch {
	case err != nil || alt == nil:
		if aria := firstAttr(el, "aria-label", "title"); aria != "" {
			info.Label = aria
		} else {
			info.Notes = append(info.Notes, "missing alt text")
			if src := attr(el, "src"); src != "" {
				info.Label = path.Base(src)
			}
		}
	case *alt == "":
		info.Notes = append(info.Notes, "decorative, empty alt")
	default:
		info.Label = *alt
	}
	return info
}

// FormFields marks input, select and textarea controls with their labelling
// state. Hidden inputs are filtered out before any other work.
func FormFields() Preset {
	return Preset{
		Name:        "form-fields",
		Description: "form controls with their labelling state",
		MarkerClass: "domlens-form-field",
		Targets: []overlay.Target{
			{
				Selector: "input, select, textarea",
				Name:     "form field",
				Filter: func(el dom.Element) bool {
					return attr(el, "type") != "hidden"
				},
			},
		},
		GetInfo:    formFieldInfo,
		EvalInfo:   finishInfo,
		FormatInfo: formatLabel,
	}
}

func formFieldInfo(el dom.Element, t *overlay.Target) *overlay.Info {
	kind := el.Tag()
	if kind == "input" {
		if typ := attr(el, "type"); typ != "" {
			kind = "input[" + typ + "]"
		} else {
			kind = "input[text]"
		}
	}
	info := &overlay.Info{
		Role:    kind,
		Label:   firstAttr(el, "aria-label", "title", "placeholder", "name"),
		Details: map[string]string{},
	}
	if name := attr(el, "name"); name != "" {
		info.Details["name"] = name
	}

	wrapped, err := overlay.HasParentTag(el, "label")
	if err == nil && wrapped {
		info.Notes = append(info.Notes, "wrapped in label")
	} else if firstAttr(el, "aria-label", "aria-labelledby", "title") == "" {
		info.Notes = append(info.Notes, "no wrapping label, aria-label, or title")
	}
	return info
}

// Lists marks list containers with their direct item counts, flagging empty
// and nested lists.
func Lists() Preset {
	return Preset{
		Name:        "lists",
		Description: "list containers with direct item counts",
		MarkerClass: "domlens-list",
		Targets: []overlay.Target{
			{Selector: "ul, ol", Name: "list"},
			{Selector: "dl", Name: "description list"},
		},
		GetInfo:    listInfo,
		EvalInfo:   finishInfo,
		FormatInfo: formatLabel,
	}
}

func listInfo(el dom.Element, t *overlay.Target) *overlay.Info {
	itemTags := []string{"li"}
	if el.Tag() == "dl" {
		itemTags = []string{"dt", "dd"}
	}
	items, err := overlay.CountChildrenByTag(el, itemTags...)

	info := &overlay.Info{
		Details: map[string]string{"tag": el.Tag()},
	}
	if err == nil {
		info.Label = fmt.Sprintf("%d items", items)
		if items == 0 {
			info.Notes = append(info.Notes, "empty list")
		}
	}
	if nested, err := overlay.HasParentTag(el, "li", "dd"); err == nil && nested {
		info.Notes = append(info.Notes, "nested list")
	}
	return info
}
