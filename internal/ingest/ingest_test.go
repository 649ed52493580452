package ingest

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const sampleDocument = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>AI is useful.</w:t></w:r><w:r><w:t xml:space="preserve"> Furthermore, it saves time.</w:t></w:r></w:p>
    <w:p><w:r><w:t>I love it!</w:t></w:r></w:p>
    <w:p></w:p>
  </w:body>
</w:document>`

func TestParseText(t *testing.T) {
	doc, err := Parse("essay.txt", []byte("\xEF\xBB\xBFFirst   line here.\n\n\n  Second line.  \n"))
	require.NoError(t, err)

	assert.Equal(t, "essay", doc.Name)
	assert.Equal(t, "txt", doc.Format)
	assert.Equal(t, "First line here.\nSecond line.", doc.Text)
}

func TestParseTextInvalidUTF8(t *testing.T) {
	_, err := Parse("bad.txt", []byte{0xff, 0xfe, 0xfd})
	assert.Error(t, err)
}

func TestParseMarkdown(t *testing.T) {
	src := "# My Essay\n\n" +
		"Some **bold** and _italic_ text with a [link](http://example.com).\n" +
		"It wraps onto a second line.\n\n" +
		"```go\nfmt.Println(\"code is not prose\")\n```\n\n" +
		"- first point\n- second `inline` point\n\n" +
		"<div>raw html</div>\n\n" +
		"See <https://example.org> ![diagram](d.png)\n"

	doc, err := Parse("notes.MD", []byte(src))
	require.NoError(t, err)

	assert.Equal(t, "md", doc.Format)
	assert.Equal(t,
		"My Essay\n"+
			"Some bold and italic text with a link. It wraps onto a second line.\n"+
			"first point\n"+
			"second inline point\n"+
			"See https://example.org",
		doc.Text)
	assert.NotContains(t, doc.Text, "**")
	assert.NotContains(t, doc.Text, "code is not prose")
	assert.NotContains(t, doc.Text, "raw html")
}

func TestParseDOCX(t *testing.T) {
	doc, err := Parse("report.docx", buildDOCX(t, sampleDocument))
	require.NoError(t, err)

	assert.Equal(t, "docx", doc.Format)
	assert.Equal(t, "AI is useful. Furthermore, it saves time.\nI love it!", doc.Text)
}

func TestParseDOCXErrors(t *testing.T) {
	_, err := Parse("broken.docx", []byte("not a zip"))
	assert.Error(t, err)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err = zw.Create("word/styles.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = Parse("empty.docx", buf.Bytes())
	assert.Error(t, err)
}

func TestParseDOCXWithoutText(t *testing.T) {
	empty := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p/></w:body></w:document>`
	_, err := Parse("blank.docx", buildDOCX(t, empty))
	assert.ErrorIs(t, err, ErrNoText)
}

func TestParsePDFInvalid(t *testing.T) {
	_, err := Parse("scan.pdf", []byte("definitely not a pdf"))
	assert.Error(t, err)
}

func TestParseUnsupported(t *testing.T) {
	for _, name := range []string{"slides.pptx", "page.html", "noext"} {
		_, err := Parse(name, []byte("text"))
		assert.ErrorIs(t, err, ErrUnsupportedType, name)
	}
}

func TestParseNoText(t *testing.T) {
	_, err := Parse("empty.txt", []byte(" \n\t\n"))
	assert.ErrorIs(t, err, ErrNoText)

	_, err = Parse("code.md", []byte("```\nonly code\n```\n"))
	assert.ErrorIs(t, err, ErrNoText)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draft.txt")
	require.NoError(t, os.WriteFile(path, []byte("Written on a train. The coffee was cold."), 0644))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "draft", doc.Name)
	assert.Equal(t, "Written on a train. The coffee was cold.", doc.Text)

	_, err = Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestFormats(t *testing.T) {
	assert.Equal(t, []string{"txt", "md", "pdf", "docx"}, Formats())
}
