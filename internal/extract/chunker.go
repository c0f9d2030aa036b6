package extract

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	chunkTokenLimit = 400
	overlapTokenMax = 80
	chunkHeadingMax = 2
)

// Chunk is one embeddable slice of an extracted document.
type Chunk struct {
	Content  string
	Position int
	Tokens   int
}

// ChunkMarkdown splits a document along its markdown structure: level 1-2
// headings start a new chunk, blocks accumulate until the token estimate
// crosses the limit, and a tail of the previous chunk carries over so
// context survives the cut. Heading text is prepended to every chunk it
// governs, which measurably helps retrieval of mid-document content.
func ChunkMarkdown(markdown string) []Chunk {
	md := goldmark.New()
	reader := text.NewReader([]byte(markdown))
	doc := md.Parser().Parse(reader)

	var chunks []Chunk
	var current []string
	var currentTokens int
	var heading string
	position := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		content := strings.Join(current, "\n\n")
		if heading != "" {
			content = "Heading: " + heading + "\n" + content
		}
		chunks = append(chunks, Chunk{
			Content:  content,
			Position: position,
			Tokens:   estimateTokens(content),
		})
		position++

		// Carry a short tail into the next chunk.
		overlapTokens := 0
		var overlap []string
		for i := len(current) - 1; i >= 0; i-- {
			t := estimateTokens(current[i])
			if overlapTokens+t > overlapTokenMax {
				break
			}
			overlapTokens += t
			overlap = append([]string{current[i]}, overlap...)
		}
		if len(overlap) == len(current) {
			overlap = nil
			overlapTokens = 0
		}
		current = overlap
		currentTokens = overlapTokens
	}

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.Heading:
			if n.Level <= chunkHeadingMax {
				flush()
				current = nil
				currentTokens = 0
				heading = string(n.Text(reader.Source()))
				continue
			}
			txt := string(n.Text(reader.Source()))
			current = append(current, txt)
			currentTokens += estimateTokens(txt)
		case *ast.FencedCodeBlock:
			lang := string(n.Language(reader.Source()))
			var code strings.Builder
			for i := 0; i < n.Lines().Len(); i++ {
				line := n.Lines().At(i)
				code.Write(line.Value(reader.Source()))
			}
			block := "```" + lang + "\n" + code.String() + "```"
			tokens := estimateTokens(block)
			if currentTokens+tokens > chunkTokenLimit {
				flush()
			}
			current = append(current, block)
			currentTokens += tokens
		default:
			txt := nodeText(node, reader.Source())
			if txt == "" {
				continue
			}
			tokens := estimateTokens(txt)
			if currentTokens+tokens > chunkTokenLimit {
				flush()
			}
			current = append(current, txt)
			currentTokens += tokens
		}
	}
	flush()
	return chunks
}

// estimateTokens counts words for latin text and runes for CJK, a cheap
// stand-in for a real tokenizer.
func estimateTokens(text string) int {
	count := 0
	for _, r := range text {
		if r > 127 {
			count++
		}
	}
	count += len(strings.Fields(text))
	if count == 0 && len(text) > 0 {
		return 1
	}
	return count
}

func nodeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if node.Kind() == ast.KindText {
			sb.Write(node.(*ast.Text).Segment.Value(source))
			sb.WriteByte(' ')
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
