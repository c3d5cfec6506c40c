package media

import (
	"net/url"
	"path"
	"strings"

	"github.com/v-hunt/trunity-importer/internal/question"
)

const imageExt = ".gif"

// PathFixer maps an <img> src as written in question markup to the archive
// member holding the image.
type PathFixer func(src string) string

// ArchivePath: Windows separators become slashes and the fixed image
// extension is appended.
func ArchivePath(src string) string {
	return strings.ReplaceAll(src, `\`, "/") + imageExt
}

// PreviewPath maps a CMS preview link such as
// .../GetImagePreview.aspx?ImageID=580404 to images/580404.gif. Links without
// an ImageID fall back to ArchivePath.
func PreviewPath(src string) string {
	u, err := url.Parse(src)
	if err == nil {
		if id := u.Query().Get("ImageID"); id != "" {
			return path.Join("images", id+imageExt)
		}
	}
	return ArchivePath(src)
}

// ItemsDirPath resolves QTI item images, which are relative to testitems/.
func ItemsDirPath(src string) string {
	return path.Join("testitems", strings.ReplaceAll(src, `\`, "/"))
}

// Rules picks the fixer for a question kind.
type Rules func(k question.Kind) PathFixer

// SDARules: multiple-answer items reference CMS previews, everything else
// uses archive-relative names.
func SDARules(k question.Kind) PathFixer {
	if k == question.KindMultipleAnswer {
		return PreviewPath
	}
	return ArchivePath
}

func QTIRules(question.Kind) PathFixer { return ItemsDirPath }
