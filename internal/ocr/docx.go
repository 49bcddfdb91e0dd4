package ocr

import (
	"html"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"

	"github.com/joseph-ayodele/contracts-tracker/constants"
	"github.com/joseph-ayodele/contracts-tracker/internal/common"
)

var (
	reDocxParagraph = regexp.MustCompile(`</w:p>|<w:br\s*/>|<w:cr\s*/>`)
	reDocxTab       = regexp.MustCompile(`<w:tab\s*/>`)
	reXMLTag        = regexp.MustCompile(`<[^>]+>`)
)

// extractDOCX reads typed contracts directly; no recognition engine is involved.
func (e *Extractor) extractDOCX(path string) (ExtractionResult, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return ExtractionResult{SourceType: constants.DOCX}, common.EngineFailure("docx: cannot read document", err)
	}
	defer r.Close()

	text := Normalize(docxXMLToText(r.Editable().GetContent()))
	return ExtractionResult{
		Text:       text,
		Pages:      1,
		SourceType: constants.DOCX,
		Method:     MethodDOCX,
		Confidence: blendConfidence(1.0, heuristicConfidence(text)),
	}, nil
}

// docxXMLToText flattens WordprocessingML into plain text, one paragraph per line.
func docxXMLToText(xml string) string {
	s := reDocxParagraph.ReplaceAllString(xml, "\n")
	s = reDocxTab.ReplaceAllString(s, "\t")
	s = reXMLTag.ReplaceAllString(s, "")
	return html.UnescapeString(strings.TrimSpace(s))
}
