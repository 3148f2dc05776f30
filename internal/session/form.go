package session

import (
	"sort"

	"pagecms/internal/formcheck"
	"pagecms/internal/sanitize"
)

// FieldKind is the input affordance a form presents for a field.
type FieldKind int

const (
	// KindShortText: single-line text input.
	KindShortText FieldKind = iota
	// KindLongText: multi-line text area.
	KindLongText
	// KindChoice: fixed choice list.
	KindChoice
	// KindPhone: telephone input.
	KindPhone
	// KindEmail: email input.
	KindEmail
	// KindFile: media file picker.
	KindFile
)

// FieldConfig describes how one field is presented and validated in a form.
type FieldConfig struct {
	Label   string
	Kind    FieldKind
	Options []ChoiceOption
}

// ChoiceOption is one entry of a KindChoice field.
type ChoiceOption struct {
	Value string
	Label string
}

// fieldConfigs is the static per-field presentation table. Fields without an
// entry fall back to a generic short-text config labeled by the field name.
var fieldConfigs = map[string]FieldConfig{
	"title":       {Label: "Main title", Kind: KindLongText},
	"subtitle":    {Label: "Subtitle", Kind: KindLongText},
	"description": {Label: "Description", Kind: KindLongText},
	"phone":       {Label: "Phone", Kind: KindPhone},
	"address":     {Label: "Address", Kind: KindLongText},
	"email":       {Label: "Email", Kind: KindEmail},

	"service1_title":       {Label: "Service 1 title", Kind: KindShortText},
	"service1_description": {Label: "Service 1 description", Kind: KindLongText},
	"service1_point1":      {Label: "Service 1 point 1", Kind: KindShortText},
	"service1_point2":      {Label: "Service 1 point 2", Kind: KindShortText},

	"service2_title":       {Label: "Service 2 title", Kind: KindShortText},
	"service2_description": {Label: "Service 2 description", Kind: KindLongText},
	"service2_point1":      {Label: "Service 2 point 1", Kind: KindShortText},
	"service2_point2":      {Label: "Service 2 point 2", Kind: KindShortText},

	"service3_title":       {Label: "Service 3 title", Kind: KindShortText},
	"service3_description": {Label: "Service 3 description", Kind: KindLongText},
	"service3_point1":      {Label: "Service 3 point 1", Kind: KindShortText},
	"service3_point2":      {Label: "Service 3 point 2", Kind: KindShortText},

	"about_title":       {Label: "About title", Kind: KindShortText},
	"about_description": {Label: "About description", Kind: KindLongText},

	"stat1_number": {Label: "Statistic 1 value", Kind: KindShortText},
	"stat1_label":  {Label: "Statistic 1 label", Kind: KindShortText},
	"stat2_number": {Label: "Statistic 2 value", Kind: KindShortText},
	"stat2_label":  {Label: "Statistic 2 label", Kind: KindShortText},
	"stat3_number": {Label: "Statistic 3 value", Kind: KindShortText},
	"stat3_label":  {Label: "Statistic 3 label", Kind: KindShortText},

	"zone_title":          {Label: "Coverage area title", Kind: KindShortText},
	"zone_service1_title": {Label: "Area service 1 title", Kind: KindShortText},
	"zone_service1_desc":  {Label: "Area service 1 description", Kind: KindLongText},
	"zone_service2_title": {Label: "Area service 2 title", Kind: KindShortText},
	"zone_service2_desc":  {Label: "Area service 2 description", Kind: KindLongText},
	"zone_address":        {Label: "Area address", Kind: KindLongText},
	"zone_cta_title":      {Label: "Call-to-action title", Kind: KindShortText},

	"footer_copyright": {Label: "Copyright", Kind: KindShortText},
	"footer_phone":     {Label: "Footer phone", Kind: KindPhone},
	"footer_address":   {Label: "Footer address", Kind: KindLongText},
}

// sectionTitles maps known section names to their display titles; unknown
// sections display as their raw name.
var sectionTitles = map[string]string{
	"hero":           "Hero section",
	"services":       "Services",
	"about":          "About",
	"certifications": "Certifications",
	"zone":           "Coverage area",
	"footer":         "Footer",
	"contact":        "Contact",
}

// FieldConfigFor returns the presentation config for a field, falling back
// to a generic short-text field labeled with the field name.
func FieldConfigFor(field string) FieldConfig {
	if cfg, ok := fieldConfigs[field]; ok {
		return cfg
	}
	return FieldConfig{Label: field, Kind: KindShortText}
}

// SectionTitle returns the display title for a section.
func SectionTitle(section string) string {
	if title, ok := sectionTitles[section]; ok {
		return title
	}
	return section
}

// FormField is one rendered entry of a transient section form.
type FormField struct {
	Field  string
	Config FieldConfig
	// Value is the field's current model value. Kinds that cannot render
	// markup (anything but the long-text area) carry a tag-stripped copy.
	Value string
}

// BuildForm describes an edit form for every field the model currently holds
// in section, in deterministic (sorted) order. The form is transient: it
// reflects the model at call time and is rebuilt on each open.
func (c *Controller) BuildForm(section string) []FormField {
	fields := c.model.Section(section)
	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	sort.Strings(names)

	form := make([]FormField, 0, len(names))
	for _, f := range names {
		cfg := FieldConfigFor(f)
		value := fields[f]
		if cfg.Kind != KindLongText {
			value = sanitize.StripTags(value)
		}
		form = append(form, FormField{Field: f, Config: cfg, Value: value})
	}
	return form
}

// OutcomeInvalid marks a form value that failed validation and was never
// proposed.
const OutcomeInvalid Outcome = -1

// SubmitForm routes a section form submission: each raw value is validated
// per its field kind, then proposed through the guarded mutation path.
// Invalid values are skipped with an error notification and reported as
// OutcomeInvalid; the rest of the submission still proceeds.
func (c *Controller) SubmitForm(section string, values map[string]string) map[string]Outcome {
	outcomes := make(map[string]Outcome, len(values))

	rules := make(map[string]formcheck.Rule, len(values))
	for field := range values {
		rules[field] = ruleFor(FieldConfigFor(field).Kind)
	}
	res := formcheck.Validate(values, rules)

	if len(res.Errors) > 0 {
		c.notify.Notify("Some fields were rejected: "+res.Errors[0], NoticeError)
	}

	for field := range values {
		if _, ok := res.Sanitized[field]; !ok {
			outcomes[field] = OutcomeInvalid
			continue
		}
		// The guarded path re-sanitizes; validation only decides
		// acceptance. Raw values go in so the path stays the single
		// sanitization authority.
		outcomes[field] = c.ProposeEdit(section, field, values[field])
	}
	return outcomes
}

// ruleFor maps a presentation kind to its validation rule.
func ruleFor(kind FieldKind) formcheck.Rule {
	switch kind {
	case KindPhone:
		return formcheck.Rule{Kind: formcheck.KindPhone}
	case KindEmail:
		return formcheck.Rule{Kind: formcheck.KindEmail}
	case KindLongText:
		return formcheck.Rule{Kind: formcheck.KindHTML}
	default:
		return formcheck.Rule{Kind: formcheck.KindHTML}
	}
}
