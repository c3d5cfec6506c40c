package formats

import (
	"context"
	"log"
	"sort"

	"github.com/v-hunt/trunity-importer/internal/archive"
	"github.com/v-hunt/trunity-importer/internal/media"
	"github.com/v-hunt/trunity-importer/internal/trunity"
	"github.com/v-hunt/trunity-importer/internal/warnings"
)

// Adapter imports one package format into Trunity.
type Adapter interface {
	// Import reads arc, uploads its media and question pools, and reports
	// the pools created together with the data-quality warnings of the run.
	Import(ctx context.Context, arc *archive.Archive, env Env, opts Options) (Result, error)
}

// Remote is the part of the Trunity API an import drives.
type Remote interface {
	CreateQuestionPool(ctx context.Context, siteID int, title string, topicID int) (int, error)
	CreateTopic(ctx context.Context, siteID int, title string, parentID int) (int, error)
	UploadQuestionnaire(ctx context.Context, id int, q *trunity.Questionnaire) error
}

// TopicResolver chooses the topic for a pool title; 0 means the book root.
type TopicResolver func(ctx context.Context, poolTitle string) (int, error)

type Env struct {
	Remote   Remote
	Uploader media.Uploader
	Log      *log.Logger // nil logs to the standard logger
}

func (e Env) Logger() *log.Logger {
	if e.Log != nil {
		return e.Log
	}
	return log.Default()
}

type Options struct {
	BookID int
	// TopicID, when set, receives every pool of the run.
	TopicID int
	// Grade limits an SDA import to the tests of one grade.
	Grade string
	// Topics is asked for each pool when TopicID is unset. SDA only.
	Topics TopicResolver
}

type Result struct {
	Format   string             `json:"format"`
	Pools    []Pool             `json:"pools"`
	Warnings []warnings.Warning `json:"warnings"`
}

type Pool struct {
	TestID    string `json:"test_id"`
	Title     string `json:"title"`
	TopicID   int    `json:"topic_id"`
	ContentID int    `json:"content_id"`
	Questions int    `json:"questions"`
}

// Registry of adapters by format key ("qti", "sda").
var registry = map[string]Adapter{}

// Register a format adapter. Call from init() in subpackages.
func Register(format string, a Adapter) { registry[format] = a }

// Lookup returns a registered adapter for a format.
func Lookup(format string) (Adapter, bool) { a, ok := registry[format]; return a, ok }

// Names lists the registered formats, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
