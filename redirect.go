package wikiextract

import (
	"strings"

	"github.com/pkg/errors"
)

// Recoverable redirect failures: the offending page contributes no
// redirect entry, and the caller logs and moves on.
var (
	// ErrInvalidRedirect means the redirect text contains no
	// recognizable link.
	ErrInvalidRedirect = errors.New("invalid redirect format")
	// ErrExternalLinkOffWiki means the redirect is a bracketed
	// external link to a different site.
	ErrExternalLinkOffWiki = errors.New("external link not on this wiki")
)

// ParseRedirectTarget resolves the target of a page whose raw text is
// already known to begin with the redirect marker. Internal links
// ("[[A]]", "[[A#B]]") yield the page and optional heading; bracketed
// external links ("[http...]") are accepted only when their domain is
// the dump's own, in which case the page name comes from the title=
// query parameter.
func ParseRedirectTarget(domain, text string) (PageName, error) {
	if pos := strings.Index(text, "[["); pos >= 0 {
		return parseInternalTarget(text, pos+2)
	}
	if pos := strings.Index(text, "[http"); pos >= 0 {
		return parseExternalTarget(domain, text, pos)
	}
	return PageName{}, errors.Wrapf(ErrInvalidRedirect, "%q", text)
}

func parseInternalTarget(text string, start int) (PageName, error) {
	length := strings.Index(text[start:], "]]")
	if length < 0 {
		return PageName{}, errors.Wrapf(ErrInvalidRedirect, "%q", text)
	}
	return ParsePageName(text[start : start+length]), nil
}

func parseExternalTarget(domain, text string, start int) (PageName, error) {
	linkLen := strings.Index(text[start:], "]")
	if linkLen < 0 {
		return PageName{}, errors.Wrapf(ErrInvalidRedirect, "%q", text)
	}
	link := text[start+1 : start+linkLen]

	url, _, ok := strings.Cut(link, " ")
	if !ok {
		return PageName{}, errors.Wrapf(ErrInvalidRedirect, "%q", text)
	}

	linkDomain, ok := extractDomain(url)
	if !ok || linkDomain != domain {
		return PageName{}, errors.Wrapf(ErrExternalLinkOffWiki, "%q", text)
	}

	idx := strings.Index(url, "title=")
	if idx < 0 {
		return PageName{}, errors.Wrapf(ErrExternalLinkOffWiki, "%q", text)
	}
	title, _, ok := strings.Cut(url[idx+len("title="):], "&")
	if !ok {
		return PageName{}, errors.Wrapf(ErrExternalLinkOffWiki, "%q", text)
	}
	return PageName{Name: title}, nil
}
