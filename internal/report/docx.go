package report

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"github.com/zombar/humanscore/internal/models"
)

const (
	contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

	relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

	// table column widths in twentieths of a point
	flagColumnWidth     = 2600
	sentenceColumnWidth = 6800
)

// WriteDOCX writes a Word document with a two-column table of flags and
// sentences, each sentence cell shaded by its flag
func WriteDOCX(w io.Writer, result models.AnalysisResult, generated time.Time) error {
	zw := zip.NewWriter(w)

	parts := []struct {
		name string
		body []byte
	}{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", []byte(relsXML)},
		{"word/document.xml", documentXML(result, generated)},
	}
	for _, part := range parts {
		f, err := zw.Create(part.name)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", part.name, err)
		}
		if _, err := f.Write(part.body); err != nil {
			return fmt.Errorf("failed to write %s: %w", part.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish DOCX report: %w", err)
	}
	return nil
}

func documentXML(result models.AnalysisResult, generated time.Time) []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)

	paragraph(&b, Title, `<w:b/><w:sz w:val="48"/>`)
	paragraph(&b, fmt.Sprintf("Overall Human-Likeness Score: %.1f%%", result.HumanScore), "")
	paragraph(&b, "Generated: "+generated.Format("January 02, 2006 at 03:04 PM"), "")
	if result.Error != "" {
		paragraph(&b, result.Error, `<w:i/>`)
	}
	paragraph(&b, "Sentence Analysis", `<w:b/><w:sz w:val="32"/>`)

	b.WriteString(`<w:tbl><w:tblPr><w:tblW w:w="0" w:type="auto"/><w:tblBorders>`)
	for _, side := range []string{"top", "left", "bottom", "right", "insideH", "insideV"} {
		fmt.Fprintf(&b, `<w:%s w:val="single" w:sz="4" w:space="0" w:color="auto"/>`, side)
	}
	b.WriteString(`</w:tblBorders></w:tblPr>`)
	fmt.Fprintf(&b, `<w:tblGrid><w:gridCol w:w="%d"/><w:gridCol w:w="%d"/></w:tblGrid>`,
		flagColumnWidth, sentenceColumnWidth)

	row(&b, "Flag", "Sentence", "", `<w:b/>`)
	for _, s := range result.Sentences {
		label := s.Suggestion.Symbol + " " + s.Suggestion.Short
		row(&b, label, s.Sentence, colorFor(docxColors, s.Flag, "FFFFFF"), "")
	}

	b.WriteString(`</w:tbl><w:sectPr/></w:body></w:document>`)
	return b.Bytes()
}

func paragraph(b *bytes.Buffer, text, runProps string) {
	b.WriteString(`<w:p>`)
	run(b, text, runProps)
	b.WriteString(`</w:p>`)
}

func row(b *bytes.Buffer, flag, sentence, fill, runProps string) {
	b.WriteString(`<w:tr>`)
	fmt.Fprintf(b, `<w:tc><w:tcPr><w:tcW w:w="%d" w:type="dxa"/></w:tcPr>`, flagColumnWidth)
	paragraph(b, flag, runProps)
	b.WriteString(`</w:tc>`)

	fmt.Fprintf(b, `<w:tc><w:tcPr><w:tcW w:w="%d" w:type="dxa"/>`, sentenceColumnWidth)
	if fill != "" {
		fmt.Fprintf(b, `<w:shd w:val="clear" w:color="auto" w:fill="%s"/>`, fill)
	}
	b.WriteString(`</w:tcPr>`)
	paragraph(b, sentence, runProps)
	b.WriteString(`</w:tc></w:tr>`)
}

func run(b *bytes.Buffer, text, runProps string) {
	b.WriteString(`<w:r>`)
	if runProps != "" {
		b.WriteString(`<w:rPr>` + runProps + `</w:rPr>`)
	}
	b.WriteString(`<w:t xml:space="preserve">`)
	xml.EscapeText(b, []byte(text))
	b.WriteString(`</w:t></w:r>`)
}
