package patcher

import (
	"fmt"
	"regexp"

	"github.com/tidwall/gjson"

	apperrors "socialpatch.io/socialpatch/internal/pkg/errors"
)

// DefaultLanguages are the locales whose socials list was shipped without
// a Twitter entry. The list follows the common file layout and has not been
// checked against every locale file.
var DefaultLanguages = []string{"ru", "zh", "fr", "de", "hi", "ko", "he", "sw", "pt", "es", "it"}

const (
	DefaultValue  = "Twitter"
	DefaultLength = 3
	DefaultIndex  = 2
)

// Language codes are used verbatim as path segments.
var languagePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// Rule describes which socials lists get patched and how.
type Rule struct {
	// Languages is the allow-list of footer.socials keys, in the order they are checked.
	Languages []string
	// Value replaces the entry at Index.
	Value string
	// Length is the exact number of entries a list must have to be patched.
	Length int
	// Index is the entry that gets replaced.
	Index int
}

// DefaultRule returns the rule that sets the third of three entries to "Twitter".
func DefaultRule() Rule {
	return Rule{
		Languages: append([]string(nil), DefaultLanguages...),
		Value:     DefaultValue,
		Length:    DefaultLength,
		Index:     DefaultIndex,
	}
}

// Validate checks the rule for values that cannot be applied.
func (r Rule) Validate() error {
	if r.Value == "" {
		return apperrors.ConfigInvalid("patch.value must not be empty")
	}
	if r.Length < 1 {
		return apperrors.ConfigInvalid("patch.length must be at least 1")
	}
	if r.Index < 0 || r.Index >= r.Length {
		return apperrors.ConfigInvalid(fmt.Sprintf("patch.index %d out of range for length %d", r.Index, r.Length))
	}
	seen := make(map[string]struct{}, len(r.Languages))
	for _, lang := range r.Languages {
		if !languagePattern.MatchString(lang) {
			return apperrors.ConfigInvalid(fmt.Sprintf("invalid language code %q", lang))
		}
		if _, dup := seen[lang]; dup {
			return apperrors.ConfigInvalid(fmt.Sprintf("duplicate language code %q", lang))
		}
		seen[lang] = struct{}{}
	}
	return nil
}

// applies reports whether list must be patched: it is an array of exactly
// Length entries and none of them is Value already.
func (r Rule) applies(list gjson.Result) bool {
	if !list.IsArray() {
		return false
	}
	items := list.Array()
	if len(items) != r.Length {
		return false
	}
	for _, item := range items {
		if item.Type == gjson.String && item.Str == r.Value {
			return false
		}
	}
	return true
}
