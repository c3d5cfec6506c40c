// Package qti imports QTI 2.1 question pool packages.
package qti

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/v-hunt/trunity-importer/internal/archive"
	"github.com/v-hunt/trunity-importer/internal/formats"
	"github.com/v-hunt/trunity-importer/internal/media"
	"github.com/v-hunt/trunity-importer/internal/qti/parser"
	"github.com/v-hunt/trunity-importer/internal/warnings"
)

const Format = "qti"

const itemsDir = "testitems"

type Importer struct{}

func init() { formats.Register(Format, Importer{}) }

type questionnaire struct {
	testID string
	meta   parser.Meta
}

func (Importer) Import(ctx context.Context, arc *archive.Archive, env formats.Env, opts formats.Options) (formats.Result, error) {
	qns, err := readQuestionnaires(arc)
	if err != nil {
		return formats.Result{}, err
	}

	w := &warnings.Collector{}
	acc := &formats.Accumulator{
		Resolver: media.NewResolver(arc, env.Uploader, media.QTIRules),
		Warnings: w,
	}
	for _, qn := range qns {
		for i, file := range qn.meta.ItemFiles {
			ref := parser.ItemRef{File: file, TestID: qn.testID, Position: i + 1}
			if err := importItem(ctx, arc, ref, acc); err != nil {
				return formats.Result{}, err
			}
		}
	}

	res := formats.Result{Format: Format}
	byTest := make(map[string]parser.Meta, len(qns))
	for _, qn := range qns {
		byTest[qn.testID] = qn.meta
	}
	topics := make(map[string]int)
	for _, grp := range acc.Groups.All() {
		meta := byTest[grp.TestID]
		topicID, err := topicFor(ctx, env, opts, meta.SectionTitle, topics)
		if err != nil {
			return formats.Result{}, err
		}
		pool, err := formats.UploadPool(ctx, env, opts.BookID, meta.Title, topicID, grp)
		if err != nil {
			return formats.Result{}, err
		}
		res.Pools = append(res.Pools, pool)
	}
	res.Warnings = w.Items()
	return res, nil
}

// readQuestionnaires lists the questionnaires of arc in manifest order.
// Structural problems are returned as parser.ErrMalformed.
func readQuestionnaires(arc *archive.Archive) ([]questionnaire, error) {
	f, err := arc.Open(parser.ManifestFile)
	if errors.Is(err, archive.ErrNotFound) {
		return nil, fmt.Errorf("%w: no %s", parser.ErrMalformed, parser.ManifestFile)
	} else if err != nil {
		return nil, err
	}
	mf, err := parser.ParseManifest(f)
	f.Close()
	if err != nil {
		return nil, err
	}

	var out []questionnaire
	for _, href := range mf.QuestionnaireFiles() {
		name := href
		if !arc.Has(name) {
			name = path.Join(itemsDir, href)
		}
		mr, err := arc.Open(name)
		if err != nil {
			return nil, fmt.Errorf("%w: meta info %s: %v", parser.ErrMalformed, href, err)
		}
		meta, err := parser.ParseMeta(mr)
		mr.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", href, err)
		}
		out = append(out, questionnaire{testID: href, meta: meta})
	}
	return out, nil
}

func importItem(ctx context.Context, arc *archive.Archive, ref parser.ItemRef, acc *formats.Accumulator) error {
	f, err := arc.Open(path.Join(itemsDir, ref.File))
	if err != nil {
		acc.Warnings.Add(ref.File, "Item file not found in package!")
		return nil
	}
	defer f.Close()
	q, ok, err := parser.ParseItem(ref, f, acc.Warnings)
	if err != nil {
		acc.Warnings.Add(ref.File, err.Error())
		return nil
	}
	if !ok {
		return nil
	}
	return acc.Add(ctx, q)
}

// topicFor returns the explicit topic, or the topic named after the
// section, created once per run.
func topicFor(ctx context.Context, env formats.Env, opts formats.Options, section string, cache map[string]int) (int, error) {
	if opts.TopicID != 0 || section == "" {
		return opts.TopicID, nil
	}
	if id, ok := cache[section]; ok {
		return id, nil
	}
	id, err := env.Remote.CreateTopic(ctx, opts.BookID, section, 0)
	if err != nil {
		return 0, err
	}
	env.Logger().Printf("created topic %q id=%d", section, id)
	cache[section] = id
	return id, nil
}
