package parser

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html/charset"
)

// ErrMalformed marks a structurally broken package: a missing manifest or a
// meta-info file without its expected elements. It is never recovered.
var ErrMalformed = errors.New("malformed qti package")

const ManifestFile = "imsmanifest.xml"

type Manifest struct {
	Resources []ManifestResource
}

type ManifestResource struct {
	Identifier   string
	Href         string
	Type         string
	Files        []string
	Dependencies []string
}

// Questionnaire reports whether the resource describes a questionnaire;
// those are the ones that depend on other resources.
func (r ManifestResource) Questionnaire() bool { return len(r.Dependencies) > 0 }

type imsManifest struct {
	XMLName   xml.Name      `xml:"manifest"`
	Resources []imsResource `xml:"resources>resource"`
}
type imsResource struct {
	Identifier   string          `xml:"identifier,attr"`
	Href         string          `xml:"href,attr"`
	Type         string          `xml:"type,attr"`
	Files        []imsFile       `xml:"file"`
	Dependencies []imsDependency `xml:"dependency"`
}
type imsFile struct {
	Href string `xml:"href,attr"`
}
type imsDependency struct {
	IdentifierRef string `xml:"identifierref,attr"`
}

func ParseManifest(r io.Reader) (Manifest, error) {
	var mf imsManifest
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&mf); err != nil {
		return Manifest{}, fmt.Errorf("%w: %s: %v", ErrMalformed, ManifestFile, err)
	}

	var out Manifest
	for _, r := range mf.Resources {
		res := ManifestResource{
			Identifier: r.Identifier,
			Href:       r.Href,
			Type:       r.Type,
		}
		for _, f := range r.Files {
			res.Files = append(res.Files, f.Href)
		}
		for _, d := range r.Dependencies {
			res.Dependencies = append(res.Dependencies, d.IdentifierRef)
		}
		out.Resources = append(out.Resources, res)
	}
	return out, nil
}

// QuestionnaireFiles lists the meta-info hrefs in manifest order.
func (m Manifest) QuestionnaireFiles() []string {
	var out []string
	for _, r := range m.Resources {
		if r.Questionnaire() && r.Href != "" {
			out = append(out, r.Href)
		}
	}
	return out
}
