package output

import (
	"regexp"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
)

const (
	bodyFont  = "Malgun Gothic"
	bodySize  = 12
	titleSize = 16

	// transcript paragraphs are cut after this many words
	paragraphWords = 120
)

var (
	mdHeading  = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	mdBullet   = regexp.MustCompile(`^[-*+]\s+(.+)$`)
	mdStrong   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	mdMetaLine = regexp.MustCompile(`(?i)^(meta description|keywords?|title)\s*:`)
)

// articleDocx renders the markdown article produced by the model.
func articleDocx(title, markdown, path string) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return err
	}
	styled(doc.AddParagraph(""), title, true, titleSize)

	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "" || line == "---":
			continue
		case mdHeading.MatchString(line):
			m := mdHeading.FindStringSubmatch(line)
			styled(doc.AddParagraph(""), m[2], true, headingSize(len(m[1])))
		case mdBullet.MatchString(line):
			inline(doc.AddParagraph(""), "• "+mdBullet.FindStringSubmatch(line)[1])
		case mdMetaLine.MatchString(line):
			styled(doc.AddParagraph(""), line, false, bodySize-1)
		default:
			inline(doc.AddParagraph(""), line)
		}
	}

	return doc.SaveTo(path)
}

// transcriptDocx lays the plain transcript out in fixed-size paragraphs.
func transcriptDocx(title, transcript, path string) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return err
	}
	styled(doc.AddParagraph(""), title, true, titleSize)

	for _, para := range paragraphs(transcript, paragraphWords) {
		doc.AddParagraph("").AddText(para).Font(bodyFont).Size(bodySize).Color("000000")
	}

	return doc.SaveTo(path)
}

func paragraphs(text string, size int) []string {
	words := strings.Fields(text)
	var out []string
	for start := 0; start < len(words); start += size {
		end := min(start+size, len(words))
		out = append(out, strings.Join(words[start:end], " "))
	}
	return out
}

func headingSize(level int) uint64 {
	if level >= 4 {
		return bodySize
	}
	return uint64(titleSize - level + 1)
}

func styled(p *docx.Paragraph, text string, bold bool, size uint64) {
	run := p.AddText(stripMarkers(text)).Font(bodyFont).Size(size).Color("000000")
	if bold {
		run.Bold(true)
	}
}

// inline writes text, turning **strong** spans into bold runs.
func inline(p *docx.Paragraph, text string) {
	last := 0
	for _, loc := range mdStrong.FindAllStringSubmatchIndex(text, -1) {
		if plain := text[last:loc[0]]; plain != "" {
			styled(p, plain, false, bodySize)
		}
		styled(p, text[loc[2]:loc[3]], true, bodySize)
		last = loc[1]
	}
	if rest := text[last:]; rest != "" {
		styled(p, rest, false, bodySize)
	}
}

func stripMarkers(s string) string {
	return strings.NewReplacer("**", "", "__", "", "`", "").Replace(s)
}
