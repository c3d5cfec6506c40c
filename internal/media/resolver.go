// Package media uploads the images and audio a question references and
// rewrites its markup to point at the uploaded copies.
package media

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/v-hunt/trunity-importer/internal/question"
)

// Uploader stores one file and returns the URL it is served from.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) (string, error)
}

// Source opens archive members.
type Source interface {
	Open(name string) (io.ReadCloser, error)
}

const imageStyle = "padding: 5px;"

var audioTemplate = template.Must(template.New("audio").Parse(
	`<p><audio controls="controls" src="{{.Src}}">Your browser does not support the audio element.</audio></p>
{{.Text}}`))

type Resolver struct {
	src   Source
	up    Uploader
	rules Rules
}

func NewResolver(src Source, up Uploader, rules Rules) *Resolver {
	if rules == nil {
		rules = SDARules
	}
	return &Resolver{src: src, up: up, rules: rules}
}

// Resolve returns a copy of q with every image uploaded and, when q has an
// audio file, its text wrapped in the audio player. q itself is untouched;
// resolving the returned value again would embed the player twice.
func (r *Resolver) Resolve(ctx context.Context, q question.Question) (question.Question, error) {
	out := q.Clone()
	fix := r.rules(q.Kind)

	var err error
	if out.Text, err = r.images(ctx, out.Text, fix); err != nil {
		return q, fmt.Errorf("item %s: %w", q.ItemID, err)
	}
	switch q.Kind {
	case question.KindMultipleChoice, question.KindMultipleAnswer:
		for i := range out.Answers {
			if out.Answers[i].Text, err = r.images(ctx, out.Answers[i].Text, fix); err != nil {
				return q, fmt.Errorf("item %s answer %d: %w", q.ItemID, i+1, err)
			}
		}
	case question.KindEssay:
		if out.CorrectAnswer, err = r.images(ctx, out.CorrectAnswer, fix); err != nil {
			return q, fmt.Errorf("item %s rubric: %w", q.ItemID, err)
		}
	case question.KindShortAnswer:
	default:
		return q, fmt.Errorf("item %s: unsupported kind %q", q.ItemID, q.Kind)
	}

	if q.AudioFile != "" {
		if out.Text, err = r.audio(ctx, out.Text, q.AudioFile); err != nil {
			return q, fmt.Errorf("item %s: %w", q.ItemID, err)
		}
	}
	return out, nil
}

func (r *Resolver) upload(ctx context.Context, member string) (string, error) {
	f, err := r.src.Open(member)
	if err != nil {
		return "", err
	}
	defer f.Close()
	u, err := r.up.Upload(ctx, path.Base(member), f)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", member, err)
	}
	return u, nil
}

func (r *Resolver) audio(ctx context.Context, text, file string) (string, error) {
	u, err := r.upload(ctx, path.Join("media", file))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := audioTemplate.Execute(&b, struct {
		Src  template.URL
		Text template.HTML
	}{template.URL(u), template.HTML(text)}); err != nil {
		return "", err
	}
	return b.String(), nil
}

// images uploads every <img> in fragment. Fragments without images are
// returned byte for byte.
func (r *Resolver) images(ctx context.Context, fragment string, fix PathFixer) (string, error) {
	if !strings.Contains(strings.ToLower(fragment), "<img") {
		return fragment, nil
	}
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return "", fmt.Errorf("parse markup: %w", err)
	}

	var walk func(n *html.Node) error
	walk = func(n *html.Node) error {
		if n.Type == html.ElementNode && n.DataAtom == atom.Img {
			if err := r.image(ctx, n, fix); err != nil {
				return err
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}

	var buf bytes.Buffer
	for _, n := range nodes {
		if err := walk(n); err != nil {
			return "", err
		}
		if err := html.Render(&buf, n); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func (r *Resolver) image(ctx context.Context, n *html.Node, fix PathFixer) error {
	src := attr(n, "src")
	if src == "" {
		return nil
	}
	u, err := r.upload(ctx, fix(src))
	if err != nil {
		return err
	}
	setAttr(n, "src", u)
	setAttr(n, "style", imageStyle)
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
