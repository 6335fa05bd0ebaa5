package pipeline

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// diagramLanguages are fence info strings that mark diagram markup.
var diagramLanguages = map[string]bool{
	"plantuml": true,
	"puml":     true,
	"uml":      true,
}

// diagramSpan matches an @startX ... @endX block in unfenced prose.
var diagramSpan = regexp.MustCompile(`(?s)@start[a-z]*\b.*@end[a-z]*`)

// MarkupExtractor pulls diagram markup out of a chat reply.
type MarkupExtractor struct {
	md goldmark.Markdown
}

// NewMarkupExtractor creates a MarkupExtractor. GFM is enabled so that
// tilde fences and tables in the prose around the code parse as the model
// intended.
func NewMarkupExtractor() *MarkupExtractor {
	return &MarkupExtractor{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

// Extract returns the diagram markup contained in reply.
//
// Selection order:
//  1. the first fenced block tagged plantuml/puml/uml, or containing an
//     @start directive
//  2. the first fenced block of any kind
//  3. the @start...@end span of unfenced text
//  4. the reply itself, trimmed
//
// An empty fenced block is skipped. The result is empty only when the reply
// is blank.
func (e *MarkupExtractor) Extract(reply string) string {
	source := []byte(reply)
	doc := e.md.Parser().Parse(text.NewReader(source))

	var preferred, first string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		body := strings.TrimSpace(blockContent(block, source))
		if body == "" {
			return ast.WalkSkipChildren, nil
		}
		if first == "" {
			first = body
		}
		lang := strings.ToLower(string(block.Language(source)))
		if diagramLanguages[lang] || strings.Contains(body, "@start") {
			preferred = body
			return ast.WalkStop, nil
		}
		return ast.WalkSkipChildren, nil
	})

	switch {
	case preferred != "":
		return preferred
	case first != "":
		return first
	}

	if span := diagramSpan.FindString(reply); span != "" {
		return strings.TrimSpace(span)
	}
	return strings.TrimSpace(reply)
}

func blockContent(block *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		buf.Write(segment.Value(source))
	}
	return buf.String()
}

var defaultExtractor = NewMarkupExtractor()

// ExtractMarkup runs the package-level extractor.
func ExtractMarkup(reply string) string {
	return defaultExtractor.Extract(reply)
}
