package sda

import (
	"context"
	"fmt"
	"io"
	"maps"
	"path"

	"github.com/v-hunt/trunity-importer/internal/archive"
	"github.com/v-hunt/trunity-importer/internal/formats"
	"github.com/v-hunt/trunity-importer/internal/media"
	"github.com/v-hunt/trunity-importer/internal/qti/export"
	"github.com/v-hunt/trunity-importer/internal/sda"
	"github.com/v-hunt/trunity-importer/internal/warnings"
)

// Pack rewrites the export in arc as a QTI package on w: one assessment
// test per SDA test, sectioned by grade, images and audio carried along.
// The package imports with the qti format. Nothing is uploaded.
func Pack(ctx context.Context, arc *archive.Archive, grade string, w io.Writer) ([]warnings.Warning, error) {
	exp, err := OpenExport(arc)
	if err != nil {
		return nil, err
	}
	keep, err := gradeFilter(exp, grade)
	if err != nil {
		return nil, err
	}

	col := &export.Collector{}
	ws := &warnings.Collector{}
	acc := &formats.Accumulator{
		Resolver: media.NewResolver(arc, col, media.SDARules),
		Warnings: ws,
	}
	// audio stays a reference; the QTI importer wraps it on upload
	tracks := make(map[string]string)
	for q := range exp.Questions(ws, keep) {
		if q.AudioFile != "" {
			tracks[q.ItemID] = q.AudioFile
			q.AudioFile = ""
		}
		if err := acc.Add(ctx, q); err != nil {
			return nil, err
		}
	}

	files := make(map[string][]byte)
	maps.Copy(files, col.Files())
	var qs []export.Questionnaire
	for _, grp := range acc.Groups.All() {
		title, err := poolTitle(exp, grp, ws)
		if err != nil {
			return nil, err
		}
		for i := range grp.Questions {
			track, ok := tracks[grp.Questions[i].ItemID]
			if !ok {
				continue
			}
			member := path.Join("media", track)
			b, err := arc.ReadFile(member)
			if err != nil {
				return nil, fmt.Errorf("item %s: %w", grp.Questions[i].ItemID, err)
			}
			files[member] = b
			grp.Questions[i].AudioFile = track
		}
		qs = append(qs, export.Questionnaire{
			ID:        "test-" + grp.TestID,
			Title:     title,
			Section:   section(exp, grp.TestID),
			Questions: grp.Questions,
		})
	}
	if err := export.WritePackage(w, qs, files); err != nil {
		return nil, err
	}
	return ws.Items(), nil
}

func section(exp *sda.Export, testID string) string {
	if g, ok := exp.Grades.Grade(testID); ok {
		return "Grade " + g
	}
	return "Ungraded"
}
