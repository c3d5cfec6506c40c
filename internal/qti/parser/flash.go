package parser

import (
	"strings"

	"github.com/v-hunt/trunity-importer/internal/warnings"
	"github.com/v-hunt/trunity-importer/internal/xmltree"
)

// flashAudio is a legacy Adobe Flash audio player embedded in an item body.
// The object is cut from the extracted markup and its track surfaces as the
// question's audio file.
type flashAudio struct {
	object    *xmltree.Node
	audioFile string
}

func findFlash(body *xmltree.Node, itemID string, w *warnings.Collector) flashAudio {
	obj, ok := body.Find("object")
	if !ok {
		return flashAudio{}
	}
	fa := flashAudio{object: obj}
	embed, ok := obj.Find("embed")
	if !ok {
		w.Add(itemID, "Flash object without embed tag; audio dropped")
		return fa
	}
	src, ok := embed.Attr("src")
	if !ok || strings.TrimSpace(src) == "" {
		w.Add(itemID, "Flash embed without src; audio dropped")
		return fa
	}
	fa.audioFile = AudioFileFromEmbed(src)
	return fa
}

// AudioFileFromEmbed returns the media file name referenced by a Flash embed
// source: everything after the last "=/".
func AudioFileFromEmbed(src string) string {
	if i := strings.LastIndex(src, "=/"); i >= 0 {
		return src[i+2:]
	}
	return src
}
