package report

import (
	"regexp"
	"strings"
)

// BlockKind discriminates the structured blocks the renderer consumes.
type BlockKind int

const (
	KindHeading BlockKind = iota
	KindParagraph
	KindList
)

// Block is one structural unit converted from the generator's lightweight
// markup. Text may still contain **bold** markers; the renderer resolves
// those inline.
type Block struct {
	Kind  BlockKind
	Text  string
	Items []string
}

// IsHeading and IsList keep template logic free of kind constants.
func (b Block) IsHeading() bool { return b.Kind == KindHeading }
func (b Block) IsList() bool    { return b.Kind == KindList }

var orderedItemRegex = regexp.MustCompile(`^\d+\.\s+`)

// ToBlocks converts the small fixed markup vocabulary the prompt templates
// produce — headings, bold, dash/star/numbered list items — into blocks.
// Anything unrecognized becomes a paragraph. This is deliberately not a
// markdown parser; the input grammar is fixed by the prompts.
func ToBlocks(text string) []Block {
	var blocks []Block
	var list *Block

	flushList := func() {
		if list != nil {
			blocks = append(blocks, *list)
			list = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)

		switch {
		case line == "":
			flushList()

		case strings.HasPrefix(line, "### "):
			flushList()
			blocks = append(blocks, Block{Kind: KindHeading, Text: strings.TrimPrefix(line, "### ")})

		case strings.HasPrefix(line, "## "):
			flushList()
			blocks = append(blocks, Block{Kind: KindHeading, Text: strings.TrimPrefix(line, "## ")})

		case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "):
			if list == nil {
				list = &Block{Kind: KindList}
			}
			list.Items = append(list.Items, line[2:])

		case orderedItemRegex.MatchString(line):
			if list == nil {
				list = &Block{Kind: KindList}
			}
			list.Items = append(list.Items, orderedItemRegex.ReplaceAllString(line, ""))

		default:
			flushList()
			blocks = append(blocks, Block{Kind: KindParagraph, Text: line})
		}
	}
	flushList()

	return blocks
}
