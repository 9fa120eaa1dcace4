package extractor

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Kind classifies what an extraction produced.
type Kind int

const (
	// KindText means Text holds the extracted plain text.
	KindText Kind = iota
	// KindImage means the document carries no extractable text and should be
	// consumed as a raw multimodal payload at generation time.
	KindImage
	// KindUnsupported means the media type is not handled.
	KindUnsupported
)

// Result is the outcome of extracting a document.
type Result struct {
	Kind Kind
	Text string
}

// Extractor converts raw file content into plain text by declared media type.
type Extractor struct {
	markdown  goldmark.Markdown
	converter *md.Converter
	tempDir   string
}

// New creates an Extractor. PDF extraction stages files under the OS temp dir.
func New() *Extractor {
	tempDir := filepath.Join(os.TempDir(), "kbase-pdf")
	_ = os.MkdirAll(tempDir, 0o755)

	return &Extractor{
		markdown:  goldmark.New(goldmark.WithExtensions(extension.Table)),
		converter: md.NewConverter("", true, nil),
		tempDir:   tempDir,
	}
}

// Extract converts content to plain text according to its media type.
// Extraction failure inside a format routine yields a sentinel string rather
// than an error, so the caller can still record partial progress.
func (e *Extractor) Extract(data []byte, mediaType string) Result {
	mt := normalizeMediaType(mediaType)

	switch {
	case strings.HasPrefix(mt, "image/"):
		return Result{Kind: KindImage}
	case mt == "text/plain" || mt == "text/csv" || mt == "application/json":
		return Result{Kind: KindText, Text: decodeText(data)}
	case mt == "text/markdown":
		return Result{Kind: KindText, Text: e.flattenMarkdown(data)}
	case mt == "text/html":
		return Result{Kind: KindText, Text: e.extractHTML(data)}
	case mt == "application/pdf":
		return Result{Kind: KindText, Text: e.extractPDF(data)}
	default:
		return Result{Kind: KindUnsupported}
	}
}

// Supported reports whether a media type can be ingested.
func Supported(mediaType string) bool {
	mt := normalizeMediaType(mediaType)
	switch mt {
	case "text/plain", "text/csv", "application/json", "text/markdown", "text/html", "application/pdf":
		return true
	}
	return strings.HasPrefix(mt, "image/")
}

// decodeText treats the content as UTF-8, dropping invalid sequences.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "")
}

// flattenMarkdown parses markdown and concatenates the text of the AST,
// keeping headings, paragraphs, lists and table rows on their own lines.
func (e *Extractor) flattenMarkdown(content []byte) string {
	reader := text.NewReader(content)
	doc := e.markdown.Parser().Parse(reader)

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(content))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.Write(seg.Value(content))
			}
		case *ast.Heading, *ast.Paragraph, *ast.ListItem:
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
				b.WriteByte('\n')
			}
		default:
			kind := n.Kind().String()
			if strings.Contains(kind, "TableRow") || strings.Contains(kind, "TableHeader") {
				if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
					b.WriteByte('\n')
				}
			}
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(b.String())
}

// extractHTML converts HTML to markdown first, then flattens the markdown.
func (e *Extractor) extractHTML(data []byte) string {
	markdown, err := e.converter.ConvertString(decodeText(data))
	if err != nil {
		return fmt.Sprintf("[extraction failed: %v]", err)
	}
	return e.flattenMarkdown([]byte(markdown))
}

// extractPDF extracts page text via pdfcpu. pdfcpu works on files, so the
// content is staged in a temp file and page content extracted beside it.
func (e *Extractor) extractPDF(data []byte) string {
	tempFile, err := os.CreateTemp(e.tempDir, "extract_*.pdf")
	if err != nil {
		return fmt.Sprintf("[extraction failed: %v]", err)
	}
	defer func() {
		_ = os.Remove(tempFile.Name())
	}()
	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Sprintf("[extraction failed: %v]", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Sprintf("[extraction failed: %v]", err)
	}

	pdfCtx, err := api.ReadContextFile(tempFile.Name())
	if err != nil {
		return fmt.Sprintf("[extraction failed: %v]", err)
	}
	pageCount := pdfCtx.PageCount

	outDir, err := os.MkdirTemp(e.tempDir, "pages_*")
	if err != nil {
		return fmt.Sprintf("[extraction failed: %v]", err)
	}
	defer func() {
		_ = os.RemoveAll(outDir)
	}()

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(tempFile.Name(), outDir, nil, conf); err != nil {
		return fmt.Sprintf("[extraction failed: %v]", err)
	}

	// pdfcpu writes one Content_page_N file per page.
	pageTexts := make(map[int]string)
	entries, _ := os.ReadDir(outDir)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(entry.Name(), "Content_page_%d", &pageNum); err != nil {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, entry.Name()))
		if err != nil {
			continue
		}
		pageTexts[pageNum] = string(content)
	}

	var b strings.Builder
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		page := strings.TrimSpace(pageTexts[pageNum])
		if page == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(page)
	}
	return b.String()
}

// normalizeMediaType strips parameters and lowercases the type.
func normalizeMediaType(mediaType string) string {
	if mt, _, err := mime.ParseMediaType(mediaType); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}
