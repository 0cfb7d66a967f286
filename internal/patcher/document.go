package patcher

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// ErrMalformedDocument is returned for input that is not valid JSON.
var ErrMalformedDocument = errors.New("malformed JSON document")

const socialsPath = "footer.socials"

// Width 0 keeps every array element on its own line.
var prettyOptions = &pretty.Options{
	Width:    0,
	Prefix:   "",
	Indent:   "  ",
	SortKeys: false,
}

// Change records one replaced socials entry.
type Change struct {
	Language string `yaml:"language"`
	Previous string `yaml:"previous"`
	Value    string `yaml:"value"`
}

// PatchDocument applies rule to a localization document.
//
// When nothing matches, data is returned as is together with a nil change
// list. Otherwise the result keeps the original key order and text, indented
// with two spaces and without a trailing newline. Scalars are copied as
// written, so escapes such as \u00e9 and number spellings survive unchanged.
func PatchDocument(data []byte, rule Rule) ([]byte, []Change, error) {
	if !gjson.ValidBytes(data) {
		return nil, nil, ErrMalformedDocument
	}

	socials := gjson.GetBytes(data, socialsPath)
	if !socials.IsObject() {
		return data, nil, nil
	}

	out := data
	var changes []Change
	for _, lang := range rule.Languages {
		list := socials.Get(lang)
		if !rule.applies(list) {
			continue
		}

		previous := list.Array()[rule.Index]
		path := socialsPath + "." + lang + "." + strconv.Itoa(rule.Index)

		var err error
		out, err = sjson.SetBytes(out, path, rule.Value)
		if err != nil {
			return nil, nil, fmt.Errorf("set %s: %w", path, err)
		}
		changes = append(changes, Change{
			Language: lang,
			Previous: previous.String(),
			Value:    rule.Value,
		})
	}

	if len(changes) == 0 {
		return data, nil, nil
	}
	return bytes.TrimSuffix(pretty.PrettyOptions(out, prettyOptions), []byte("\n")), changes, nil
}
