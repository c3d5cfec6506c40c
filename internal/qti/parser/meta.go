package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/v-hunt/trunity-importer/internal/xmltree"
)

// Meta is one questionnaire descriptor.
type Meta struct {
	Title        string
	SectionTitle string   // owning chapter; becomes the topic
	ItemFiles    []string // relative to testitems/, in questionnaire order
}

func ParseMeta(r io.Reader) (Meta, error) {
	doc, err := xmltree.Parse(r)
	if err != nil {
		return Meta{}, fmt.Errorf("%w: meta info: %v", ErrMalformed, err)
	}

	test, ok := doc.Find("assessmentTest")
	if !ok {
		return Meta{}, fmt.Errorf("%w: no assessmentTest", ErrMalformed)
	}
	title, ok := test.Attr("title")
	if !ok {
		return Meta{}, fmt.Errorf("%w: assessmentTest without title", ErrMalformed)
	}
	part, ok := test.Find("testPart")
	if !ok {
		return Meta{}, fmt.Errorf("%w: no testPart", ErrMalformed)
	}
	section, ok := part.Find("assessmentSection")
	if !ok {
		return Meta{}, fmt.Errorf("%w: no assessmentSection", ErrMalformed)
	}
	sectionTitle, ok := section.Attr("title")
	if !ok {
		return Meta{}, fmt.Errorf("%w: assessmentSection without title", ErrMalformed)
	}

	m := Meta{Title: strings.TrimSpace(title), SectionTitle: strings.TrimSpace(sectionTitle)}
	for _, ref := range part.FindAll("assessmentItemRef") {
		href, ok := ref.Attr("href")
		if !ok {
			id := ref.AttrOr("identifier", "?")
			return Meta{}, fmt.Errorf("%w: assessmentItemRef %s without href", ErrMalformed, id)
		}
		m.ItemFiles = append(m.ItemFiles, href)
	}
	return m, nil
}
