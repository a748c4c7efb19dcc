package content

import (
	"math"
	"regexp"
	"strings"
)

// BlockType tags a parsed body block
type BlockType string

const (
	BlockParagraph BlockType = "p"
	BlockHeading   BlockType = "h2"
	BlockQuote     BlockType = "quote"
	BlockImage     BlockType = "img"
	BlockList      BlockType = "ul"
	BlockOrdered   BlockType = "ol"
	BlockTakeaways BlockType = "takeaways"
	BlockDivider   BlockType = "divider"
)

// Block is one structural element of an article body
type Block struct {
	Type    BlockType    `json:"type"`
	Text    string       `json:"text,omitempty"`
	Parts   []InlinePart `json:"parts,omitempty"`
	URL     string       `json:"url,omitempty"`
	Caption string       `json:"caption,omitempty"`
	Items   []string     `json:"items,omitempty"`
}

// InlineType tags a run of paragraph text
type InlineType string

const (
	InlineText      InlineType = "text"
	InlineHighlight InlineType = "highlight"
	InlineAlert     InlineType = "alert"
)

// InlinePart is a run of paragraph text with its emphasis
type InlinePart struct {
	Type  InlineType `json:"type"`
	Value string     `json:"value"`
}

var (
	cloudinaryRe  = regexp.MustCompile(`(?i)https?://res\.cloudinary\.com/[^\s"'<>]+`)
	imageUploadRe = regexp.MustCompile(`(?i)/image/upload/`)
	orderedRe     = regexp.MustCompile(`^\d+\.\s`)
)

const (
	takeawaysOpen  = "[takeaways]"
	takeawaysClose = "[/takeaways]"
	quotePrefix    = ">quote:"
	captionPrefix  = "(caption:"
)

// ParseBlocks splits a plain-text body into blocks.
//
// Recognized line forms: "---" divider, "## " heading, ">quote:" quote,
// a [takeaways]...[/takeaways] fenced list, a Cloudinary image URL with an
// optional "(caption: ...)" line after it, "- " bullets and "1. " numbered
// items. Everything else is a paragraph.
func ParseBlocks(raw string) []Block {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	lines := strings.Split(raw, "\n")

	trimmed := func(i int) (string, bool) {
		if i >= len(lines) {
			return "", false
		}
		return strings.TrimSpace(lines[i]), true
	}

	blocks := make([]Block, 0)
	for i := 0; i < len(lines); {
		line := strings.TrimSpace(lines[i])

		switch {
		case line == "":
			i++

		case line == "---":
			blocks = append(blocks, Block{Type: BlockDivider})
			i++

		case strings.HasPrefix(line, "## "):
			blocks = append(blocks, Block{Type: BlockHeading, Text: strings.TrimSpace(line[3:])})
			i++

		case strings.HasPrefix(line, quotePrefix):
			blocks = append(blocks, Block{Type: BlockQuote, Text: strings.TrimSpace(strings.Replace(line, quotePrefix, "", 1))})
			i++

		case line == takeawaysOpen:
			items := make([]string, 0)
			i++
			for ; i < len(lines); i++ {
				l := strings.TrimSpace(lines[i])
				if l == takeawaysClose {
					break
				}
				if strings.HasPrefix(l, "- ") {
					items = append(items, l[2:])
				}
			}
			blocks = append(blocks, Block{Type: BlockTakeaways, Items: items})
			i++

		case cloudinaryRe.MatchString(line) && imageUploadRe.MatchString(line):
			block := Block{Type: BlockImage, URL: line}
			if next, ok := trimmed(i + 1); ok && strings.HasPrefix(next, captionPrefix) {
				caption := strings.Replace(next, captionPrefix, "", 1)
				caption = strings.Replace(caption, ")", "", 1)
				block.Caption = strings.TrimSpace(caption)
				i++
			}
			blocks = append(blocks, block)
			i++

		case strings.HasPrefix(line, "- "):
			items := make([]string, 0)
			for {
				l, ok := trimmed(i)
				if !ok || !strings.HasPrefix(l, "- ") {
					break
				}
				items = append(items, l[2:])
				i++
			}
			blocks = append(blocks, Block{Type: BlockList, Items: items})

		case orderedRe.MatchString(line):
			items := make([]string, 0)
			for {
				l, ok := trimmed(i)
				if !ok || !orderedRe.MatchString(l) {
					break
				}
				items = append(items, orderedRe.ReplaceAllString(l, ""))
				i++
			}
			blocks = append(blocks, Block{Type: BlockOrdered, Items: items})

		default:
			blocks = append(blocks, Block{Type: BlockParagraph, Text: line, Parts: ParseInline(line)})
			i++
		}
	}
	return blocks
}

// ParseInline splits text on ==highlight== and !!alert!! markers. An
// unterminated marker is kept as plain text.
func ParseInline(text string) []InlinePart {
	parts := make([]InlinePart, 0, 1)
	i := 0
	for i < len(text) {
		next := indexFrom(text, "==", i)
		if red := indexFrom(text, "!!", i); red != -1 && (next == -1 || red < next) {
			next = red
		}

		if next == -1 {
			parts = append(parts, InlinePart{Type: InlineText, Value: text[i:]})
			break
		}
		if next > i {
			parts = append(parts, InlinePart{Type: InlineText, Value: text[i:next]})
		}

		marker, kind := "==", InlineHighlight
		if strings.HasPrefix(text[next:], "!!") {
			marker, kind = "!!", InlineAlert
		}
		end := indexFrom(text, marker, next+2)
		if end == -1 {
			parts = append(parts, InlinePart{Type: InlineText, Value: text[next:]})
			break
		}

		parts = append(parts, InlinePart{Type: kind, Value: text[next+2 : end]})
		i = end + 2
	}
	return parts
}

func indexFrom(s, sub string, from int) int {
	if from > len(s) {
		return -1
	}
	idx := strings.Index(s[from:], sub)
	if idx == -1 {
		return -1
	}
	return from + idx
}

// WordsPerMinute is the assumed reading speed.
const WordsPerMinute = 220

// ReadingTime estimates minutes to read the given texts, at least 1.
func ReadingTime(texts ...string) int {
	words := 0
	for _, t := range texts {
		words += len(strings.Fields(t))
	}
	minutes := int(math.Ceil(float64(words) / WordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}
