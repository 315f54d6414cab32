package wikiextract

import (
	"strings"
)

// A PageName identifies a wiki page. Heading is set when the tracked
// subject lives under a section of a larger page rather than being a
// page of its own; two names differ if either field differs.
type PageName struct {
	Name    string
	Heading string
}

// ParsePageName is the inverse of String: "name#heading" or "name".
func ParsePageName(s string) PageName {
	if name, heading, ok := strings.Cut(s, "#"); ok {
		return PageName{Name: name, Heading: heading}
	}
	return PageName{Name: s}
}

func (p PageName) String() string {
	if p.Heading != "" {
		return p.Name + "#" + p.Heading
	}
	return p.Name
}

// Linksafe returns the spelling used in wiki link markup, with
// underscores standing in for spaces.
func (p PageName) Linksafe() PageName {
	return PageName{Name: strings.ReplaceAll(p.Name, " ", "_"), Heading: p.Heading}
}

// MarshalText lets PageName key JSON maps.
func (p PageName) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (p *PageName) UnmarshalText(b []byte) error {
	*p = ParsePageName(string(b))
	return nil
}

// Characters that are structurally ambiguous in file paths are mapped
// to visually similar but filesystem-legal look-alikes. The two
// replacers must stay exact mirrors of each other so the encoding
// round-trips.
var (
	sanitizer = strings.NewReplacer(
		"/", "⧸", // big solidus
		"\\", "⧹", // big reverse solidus
		":", "꞉", // modifier letter colon
		"*", "∗", // asterisk operator
		"?", "？", // fullwidth question mark
		"\"", "＂", // fullwidth quotation mark
		"<", "﹤", // small less-than
		">", "﹥", // small greater-than
		"|", "￨", // halfwidth forms light vertical
	)
	unsanitizer = strings.NewReplacer(
		"⧸", "/",
		"⧹", "\\",
		"꞉", ":",
		"∗", "*",
		"？", "?",
		"＂", "\"",
		"﹤", "<",
		"﹥", ">",
		"￨", "|",
	)
)

// Sanitize encodes the page name so it can be used as a file name.
// UnsanitizePageName reverses it exactly.
func (p PageName) Sanitize() string {
	return sanitizer.Replace(p.String())
}

// UnsanitizePageName decodes a file name produced by Sanitize.
func UnsanitizePageName(s string) PageName {
	return ParsePageName(unsanitizer.Replace(s))
}
