package sda

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/v-hunt/trunity-importer/internal/archive"
	"github.com/v-hunt/trunity-importer/internal/formats"
	"github.com/v-hunt/trunity-importer/internal/sda"
	"github.com/v-hunt/trunity-importer/internal/trunity"
)

type fakeRemote struct {
	pools   []string
	topics  []int
	uploads map[int]*trunity.Questionnaire
}

func (f *fakeRemote) CreateQuestionPool(_ context.Context, _ int, title string, topicID int) (int, error) {
	f.pools = append(f.pools, title)
	f.topics = append(f.topics, topicID)
	return 500 + len(f.pools), nil
}

func (f *fakeRemote) CreateTopic(context.Context, int, string, int) (int, error) {
	return 0, errors.New("sda import must not create topics")
}

func (f *fakeRemote) UploadQuestionnaire(_ context.Context, id int, q *trunity.Questionnaire) error {
	if f.uploads == nil {
		f.uploads = map[int]*trunity.Questionnaire{}
	}
	f.uploads[id] = q
	return nil
}

type fakeUploader struct{ names []string }

func (u *fakeUploader) Upload(_ context.Context, name string, r io.Reader) (string, error) {
	_, _ = io.ReadAll(r)
	u.names = append(u.names, name)
	return "https://cdn.example/" + name, nil
}

func sampleArchive(t *testing.T) *archive.Archive {
	t.Helper()
	export, err := os.ReadFile("../../sda/testdata/XML_Export_sample.xml")
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	members := map[string][]byte{
		"XML_Export_1234.xml": export,
		"media/12345.mp3":     []byte("mp3"),
		"media/54321.mp3":     []byte("mp3"),
		"images/plant_01.gif": []byte("gif"),
		"images/580404.gif":   []byte("gif"),
	}
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for name, body := range members {
		fw, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip: %v", err)
		}
		_, _ = fw.Write(body)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	arc, err := archive.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()), "science.zip")
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	return arc
}

func TestImportGroupsByTestAndAsksForTopics(t *testing.T) {
	remote := &fakeRemote{}
	up := &fakeUploader{}
	var asked []string
	opts := formats.Options{
		BookID: 7,
		Topics: func(_ context.Context, title string) (int, error) {
			asked = append(asked, title)
			if len(asked) == 1 {
				return 0, nil
			}
			return 9, nil
		},
	}
	res, err := Importer{}.Import(context.Background(), sampleArchive(t), formats.Env{Remote: remote, Uploader: up}, opts)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	wantTitles := []string{"Questionnaire 1 - Question Pool", "Questionnaire 2 - Question Pool"}
	if strings.Join(remote.pools, "|") != strings.Join(wantTitles, "|") {
		t.Fatalf("pools = %v", remote.pools)
	}
	if strings.Join(asked, "|") != strings.Join(wantTitles, "|") {
		t.Fatalf("asked = %v", asked)
	}
	if remote.topics[0] != 0 || remote.topics[1] != 9 {
		t.Fatalf("topics = %v", remote.topics)
	}
	if n := remote.uploads[501].Len(); n != 2 {
		t.Fatalf("pool 1 has %d questions", n)
	}
	if res.Pools[1].Questions != 1 || res.Pools[1].TestID != "222" {
		t.Fatalf("pools = %+v", res.Pools)
	}

	ma := remote.uploads[502].Questions[0]
	if ma.Type != "multiple_answer" || !strings.Contains(ma.Answers[0].Text, "https://cdn.example/580404.gif") {
		t.Fatalf("ma payload = %+v", ma)
	}
	if !strings.Contains(ma.Text, "https://cdn.example/54321.mp3") {
		t.Fatalf("audio missing from %q", ma.Text)
	}

	last := res.Warnings[len(res.Warnings)-1]
	if last.ItemID != "831094" || last.Message != "Question has not exactly one True answer!" {
		t.Fatalf("last warning = %+v", last)
	}
	if len(res.Warnings) != 6 {
		t.Fatalf("warnings = %v", res.Warnings)
	}
}

func TestImportGradeFilter(t *testing.T) {
	remote := &fakeRemote{}
	res, err := Importer{}.Import(context.Background(), sampleArchive(t),
		formats.Env{Remote: remote, Uploader: &fakeUploader{}}, formats.Options{BookID: 7, Grade: "K", TopicID: 3})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(res.Pools) != 1 || res.Pools[0].TestID != "222" || remote.topics[0] != 3 {
		t.Fatalf("pools = %+v topics = %v", res.Pools, remote.topics)
	}
	var got []string
	for _, w := range res.Warnings {
		got = append(got, w.ItemID+": "+w.Message)
	}
	want := []string{
		`831090: TechnologyEnhanced question is not supported - type="clozetext" multiple_responses=false`,
		"831091: Question type is unknown - Hotspot",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("warnings:\n%s", strings.Join(got, "\n"))
	}
}

func TestImportUnknownGradeUploadsNothing(t *testing.T) {
	remote := &fakeRemote{}
	up := &fakeUploader{}
	_, err := Importer{}.Import(context.Background(), sampleArchive(t),
		formats.Env{Remote: remote, Uploader: up}, formats.Options{BookID: 7, Grade: "9"})
	var ge *sda.GradeError
	if !errors.As(err, &ge) {
		t.Fatalf("expected GradeError, got %v", err)
	}
	if len(remote.pools) != 0 || len(remote.uploads) != 0 || len(up.names) != 0 {
		t.Fatalf("uploads happened: pools=%v files=%v", remote.pools, up.names)
	}
}

func TestImportWithoutExport(t *testing.T) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	_, _ = zw.Create("readme.txt")
	_ = zw.Close()
	arc, _ := archive.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()), "empty.zip")
	_, err := Importer{}.Import(context.Background(), arc, formats.Env{Remote: &fakeRemote{}, Uploader: &fakeUploader{}}, formats.Options{})
	if !errors.Is(err, archive.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
