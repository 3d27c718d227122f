// Package epubtest builds minimal EPUB fixtures for tests.
package epubtest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
)

// Fixture describes the EPUB to generate.
type Fixture struct {
	Title    string
	Author   string
	Chapters []string // XHTML body content, one entry per spine document
	Cover    []byte   // optional JPEG bytes; empty means no cover
}

// Write generates an EPUB at path. The archive has a valid container.xml,
// an OPF with EPUB2-style cover metadata, and one XHTML file per chapter.
func Write(path string, fx Fixture) error {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	add := func(name, content string) error {
		f, err := w.Create(name)
		if err != nil {
			return err
		}
		_, err = f.Write([]byte(content))
		return err
	}

	if err := add("mimetype", "application/epub+zip"); err != nil {
		return err
	}
	if err := add("META-INF/container.xml", `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`); err != nil {
		return err
	}

	manifest := ""
	spine := ""
	for i := range fx.Chapters {
		manifest += fmt.Sprintf(`<item id="ch%d" href="ch%d.xhtml" media-type="application/xhtml+xml"/>`, i, i)
		spine += fmt.Sprintf(`<itemref idref="ch%d"/>`, i)
	}

	coverMeta := ""
	if len(fx.Cover) > 0 {
		manifest += `<item id="cover-img" href="cover.jpg" media-type="image/jpeg"/>`
		coverMeta = `<meta name="cover" content="cover-img"/>`
	}

	opf := fmt.Sprintf(`<?xml version="1.0"?>
<package version="3.0" xmlns="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <metadata>
    <dc:title>%s</dc:title>
    <dc:creator>%s</dc:creator>
    %s
  </metadata>
  <manifest>%s</manifest>
  <spine>%s</spine>
</package>`, fx.Title, fx.Author, coverMeta, manifest, spine)

	if err := add("OEBPS/content.opf", opf); err != nil {
		return err
	}

	for i, body := range fx.Chapters {
		doc := fmt.Sprintf(`<?xml version="1.0"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>ch%d</title></head><body>%s</body></html>`, i, body)
		if err := add(fmt.Sprintf("OEBPS/ch%d.xhtml", i), doc); err != nil {
			return err
		}
	}

	if len(fx.Cover) > 0 {
		f, err := w.Create("OEBPS/cover.jpg")
		if err != nil {
			return err
		}
		if _, err := f.Write(fx.Cover); err != nil {
			return err
		}
	}

	if err := w.Close(); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
