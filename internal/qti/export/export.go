// Package export writes QTI 2.1 packages in the layout the importer reads:
// imsmanifest.xml at the root, questionnaire meta-info and items under
// testitems/.
package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/v-hunt/trunity-importer/internal/question"
)

// Questionnaire is one assessmentTest with its items.
type Questionnaire struct {
	ID        string
	Title     string
	Section   string
	Questions []question.Question
}

// BuildPackage writes the package to memory. files are extra members such
// as the media Collector's uploads.
func BuildPackage(qs []Questionnaire, files map[string][]byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := WritePackage(buf, qs, files); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func WritePackage(w io.Writer, qs []Questionnaire, files map[string][]byte) error {
	zw := zip.NewWriter(w)

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fw, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		if _, err := fw.Write(files[name]); err != nil {
			return err
		}
	}

	mf := imsManifest{Xmlns: "http://www.imsglobal.org/xsd/imscp_v1p1"}
	for _, qn := range qs {
		metaHref := "testitems/" + qn.ID + ".xml"
		test := imsResource{
			Identifier: qn.ID,
			Type:       "imsqti_test_xmlv2p1",
			Href:       metaHref,
			Files:      []imsFile{{Href: metaHref}},
		}
		var refs []string
		for i, q := range qn.Questions {
			itemID := q.ItemID
			if itemID == "" {
				itemID = fmt.Sprintf("%s-%d", qn.ID, i+1)
			}
			itemName := itemID + ".xml"
			body, err := buildItemXML(itemID, q)
			if err != nil {
				return err
			}
			if err := writeFile(zw, "testitems/"+itemName, body); err != nil {
				return err
			}
			refs = append(refs, itemName)
			test.Dependencies = append(test.Dependencies, imsDependency{IdentifierRef: itemID})
			mf.Resources = append(mf.Resources, imsResource{
				Identifier: itemID,
				Type:       "imsqti_item_xmlv2p1",
				Href:       "testitems/" + itemName,
				Files:      []imsFile{{Href: "testitems/" + itemName}},
			})
		}
		mf.Resources = append(mf.Resources, test)
		if err := writeFile(zw, metaHref, buildMetaXML(qn, refs)); err != nil {
			return err
		}
	}

	b, err := xml.MarshalIndent(mf, "", "  ")
	if err != nil {
		return err
	}
	if err := writeFile(zw, "imsmanifest.xml", xml.Header+string(b)); err != nil {
		return err
	}
	return zw.Close()
}

func writeFile(zw *zip.Writer, name, content string) error {
	fw, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	_, err = io.WriteString(fw, content)
	return err
}

// --- mini XML model for manifest (export only) ---
type imsManifest struct {
	XMLName   xml.Name      `xml:"manifest"`
	Xmlns     string        `xml:"xmlns,attr,omitempty"`
	Resources []imsResource `xml:"resources>resource"`
}
type imsResource struct {
	Identifier   string          `xml:"identifier,attr"`
	Type         string          `xml:"type,attr"`
	Href         string          `xml:"href,attr"`
	Files        []imsFile       `xml:"file"`
	Dependencies []imsDependency `xml:"dependency,omitempty"`
}
type imsFile struct {
	Href string `xml:"href,attr"`
}
type imsDependency struct {
	IdentifierRef string `xml:"identifierref,attr"`
}

func buildMetaXML(qn Questionnaire, refs []string) string {
	var items strings.Builder
	for _, r := range refs {
		fmt.Fprintf(&items, "\n      <assessmentItemRef identifier=\"%s\" href=\"%s\"/>", attr(strings.TrimSuffix(r, ".xml")), attr(r))
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<assessmentTest xmlns="http://www.imsglobal.org/xsd/imsqti_v2p1" identifier="%s" title="%s">
  <testPart identifier="part-1" navigationMode="linear" submissionMode="individual">
    <assessmentSection identifier="section-1" title="%s" visible="true">%s
    </assessmentSection>
  </testPart>
</assessmentTest>`, attr(qn.ID), attr(qn.Title), attr(qn.Section), items.String())
}

// buildItemXML writes markup fields verbatim; they are expected to be
// well-formed fragments.
func buildItemXML(id string, q question.Question) (string, error) {
	prompt := q.Text
	if q.AudioFile != "" {
		prompt = flashObject(q.AudioFile) + prompt
	}
	switch q.Kind {
	case question.KindMultipleChoice, question.KindMultipleAnswer:
		card, choicePrompt := "single", ""
		body := fmt.Sprintf("<div>%s</div>", prompt)
		if q.Kind == question.KindMultipleAnswer {
			card, body, choicePrompt = "multiple", "", fmt.Sprintf("<prompt>%s</prompt>", prompt)
		}
		var choices, correct strings.Builder
		for i, a := range q.Answers {
			cid := choiceID(i)
			fmt.Fprintf(&choices, "<simpleChoice identifier=\"%s\">%s</simpleChoice>", cid, a.Text)
			if a.Correct {
				fmt.Fprintf(&correct, "<value>%s</value>", cid)
			}
		}
		return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<assessmentItem identifier="%s" title="%s" xmlns="http://www.imsglobal.org/xsd/imsqti_v2p1">
  <responseDeclaration identifier="RESPONSE" cardinality="%s" baseType="identifier">
    <correctResponse>%s</correctResponse>
  </responseDeclaration>
  <itemBody>
    %s
    <choiceInteraction responseIdentifier="RESPONSE" maxChoices="%d">%s%s</choiceInteraction>
  </itemBody>
</assessmentItem>`, attr(id), attr(id), card, correct.String(), body, maxChoices(card), choicePrompt, choices.String()), nil
	case question.KindShortAnswer:
		var correct strings.Builder
		for _, a := range q.Answers {
			fmt.Fprintf(&correct, "<value>%s</value>", text(a.Text))
		}
		return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<assessmentItem identifier="%s" title="%s" xmlns="http://www.imsglobal.org/xsd/imsqti_v2p1">
  <responseDeclaration identifier="RESPONSE" cardinality="single" baseType="string">
    <correctResponse>%s</correctResponse>
  </responseDeclaration>
  <itemBody>
    <div>%s <textEntryInteraction responseIdentifier="RESPONSE"/></div>
  </itemBody>
</assessmentItem>`, attr(id), attr(id), correct.String(), prompt), nil
	case question.KindEssay:
		rubric := ""
		if q.CorrectAnswer != "" {
			rubric = fmt.Sprintf("\n    <rubricBlock view=\"scorer\">%s</rubricBlock>", q.CorrectAnswer)
		}
		return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<assessmentItem identifier="%s" title="%s" xmlns="http://www.imsglobal.org/xsd/imsqti_v2p1">
  <responseDeclaration identifier="RESPONSE" cardinality="single" baseType="string"/>
  <itemBody>
    <extendedTextInteraction responseIdentifier="RESPONSE"><prompt>%s</prompt></extendedTextInteraction>%s
  </itemBody>
</assessmentItem>`, attr(id), attr(id), prompt, rubric), nil
	}
	return "", fmt.Errorf("export item %s: unsupported kind %q", id, q.Kind)
}

func choiceID(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return fmt.Sprintf("C%d", i+1)
}

func maxChoices(card string) int {
	if card == "multiple" {
		return 0
	}
	return 1
}

func attr(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func text(s string) string { return attr(s) }

// flashObject embeds file the way legacy packages reference audio; the
// importer reads it back from media/<file>.
func flashObject(file string) string {
	return fmt.Sprintf(`<object type="application/x-shockwave-flash" data="audioplayer.swf"><embed src="audioplayer.swf?file=/%s"/></object>`, attr(file))
}
