// Package epub reads EPUB containers: OPF metadata, cover images, and
// spine-ordered chapter text. It backs metadata extraction at import time and
// the in-book search capability of the reading view.
//
// Only the subset of the EPUB format the reader needs is implemented: container
// resolution, Dublin Core title/creator, EPUB2 and EPUB3 cover discovery,
// and plain-text extraction from spine documents.
package epub

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"path"
	"regexp"
	"strings"
)

// Fallbacks when the OPF omits the fields, matching what the reading shell
// displays for anonymous uploads.
const (
	UnknownTitle  = "Unknown Title"
	UnknownAuthor = "Unknown Author"
)

// Metadata is what import needs to build a Book record.
type Metadata struct {
	Title          string
	Author         string
	CoverData      []byte
	CoverMediaType string
}

// Document is an opened EPUB file.
type Document struct {
	path     string
	zr       *zip.ReadCloser
	files    map[string]*zip.File
	opfDir   string
	title    string
	author   string
	coverRef string   // manifest href of the cover image, if any
	spine    []string // hrefs of content documents in reading order
}

type containerXML struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type packageXML struct {
	Metadata struct {
		Titles   []string  `xml:"title"`
		Creators []string  `xml:"creator"`
		Metas    []metaTag `xml:"meta"`
	} `xml:"metadata"`
	Manifest struct {
		Items []manifestItem `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		ItemRefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

type metaTag struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

type manifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

// Open opens an EPUB file and resolves its package document.
func Open(filePath string) (*Document, error) {
	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("open epub container: %w", err)
	}

	d := &Document{
		path:  filePath,
		zr:    zr,
		files: make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		d.files[f.Name] = f
	}

	if err := d.parsePackage(); err != nil {
		zr.Close()
		return nil, err
	}

	return d, nil
}

// Close releases the underlying zip reader.
func (d *Document) Close() error {
	return d.zr.Close()
}

// Path returns the filesystem path the document was opened from.
func (d *Document) Path() string {
	return d.path
}

// Title returns the Dublin Core title, or a fallback.
func (d *Document) Title() string {
	return d.title
}

// Author returns the first Dublin Core creator, or a fallback.
func (d *Document) Author() string {
	return d.author
}

// Cover returns the cover image bytes and media type.
// Returns nil bytes without error when the book declares no cover.
func (d *Document) Cover() ([]byte, string, error) {
	if d.coverRef == "" {
		return nil, "", nil
	}
	data, err := d.readFile(d.resolve(d.coverRef))
	if err != nil {
		return nil, "", fmt.Errorf("read cover %s: %w", d.coverRef, err)
	}
	mediaType := "image/jpeg"
	switch strings.ToLower(path.Ext(d.coverRef)) {
	case ".png":
		mediaType = "image/png"
	case ".gif":
		mediaType = "image/gif"
	case ".svg":
		mediaType = "image/svg+xml"
	}
	return data, mediaType, nil
}

// ChapterCount returns the number of spine documents.
func (d *Document) ChapterCount() int {
	return len(d.spine)
}

// ChapterText returns the plain text of the i-th spine document,
// tags stripped and entities decoded.
func (d *Document) ChapterText(i int) (string, error) {
	if i < 0 || i >= len(d.spine) {
		return "", fmt.Errorf("chapter index %d out of range [0,%d)", i, len(d.spine))
	}
	raw, err := d.readFile(d.resolve(d.spine[i]))
	if err != nil {
		return "", fmt.Errorf("read chapter %d: %w", i, err)
	}
	return StripTags(string(raw)), nil
}

// ExtractMetadata opens the EPUB just long enough to pull title, author, and
// cover. This is the import-time path; the reading view keeps a Document open
// instead.
func ExtractMetadata(filePath string) (*Metadata, error) {
	d, err := Open(filePath)
	if err != nil {
		return nil, err
	}
	defer d.Close()

	meta := &Metadata{
		Title:  d.Title(),
		Author: d.Author(),
	}

	cover, mediaType, err := d.Cover()
	if err != nil {
		// A broken cover should not sink the import; the book just renders
		// without one.
		return meta, nil
	}
	meta.CoverData = cover
	meta.CoverMediaType = mediaType

	return meta, nil
}

// parsePackage resolves META-INF/container.xml to the OPF and reads it.
func (d *Document) parsePackage() error {
	containerData, err := d.readFile("META-INF/container.xml")
	if err != nil {
		return fmt.Errorf("read container.xml: %w", err)
	}

	var container containerXML
	if err := xml.Unmarshal(containerData, &container); err != nil {
		return fmt.Errorf("parse container.xml: %w", err)
	}
	if len(container.Rootfiles) == 0 {
		return fmt.Errorf("container.xml declares no rootfile")
	}

	opfPath := container.Rootfiles[0].FullPath
	d.opfDir = path.Dir(opfPath)

	opfData, err := d.readFile(opfPath)
	if err != nil {
		return fmt.Errorf("read package document %s: %w", opfPath, err)
	}

	var pkg packageXML
	if err := xml.Unmarshal(opfData, &pkg); err != nil {
		return fmt.Errorf("parse package document: %w", err)
	}

	d.title = UnknownTitle
	if len(pkg.Metadata.Titles) > 0 && strings.TrimSpace(pkg.Metadata.Titles[0]) != "" {
		d.title = strings.TrimSpace(pkg.Metadata.Titles[0])
	}
	d.author = UnknownAuthor
	if len(pkg.Metadata.Creators) > 0 && strings.TrimSpace(pkg.Metadata.Creators[0]) != "" {
		d.author = strings.TrimSpace(pkg.Metadata.Creators[0])
	}

	byID := make(map[string]manifestItem, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		byID[item.ID] = item

		// EPUB3: cover carries the cover-image property.
		if strings.Contains(item.Properties, "cover-image") && d.coverRef == "" {
			d.coverRef = item.Href
		}
	}

	// EPUB2: <meta name="cover" content="{manifest id}">.
	if d.coverRef == "" {
		for _, m := range pkg.Metadata.Metas {
			if m.Name == "cover" {
				if item, ok := byID[m.Content]; ok {
					d.coverRef = item.Href
				}
				break
			}
		}
	}

	for _, ref := range pkg.Spine.ItemRefs {
		item, ok := byID[ref.IDRef]
		if !ok {
			continue
		}
		// Only textual content documents participate in search.
		if strings.Contains(item.MediaType, "html") || strings.Contains(item.MediaType, "xml") {
			d.spine = append(d.spine, item.Href)
		}
	}

	return nil
}

// resolve joins a manifest href onto the OPF directory.
func (d *Document) resolve(href string) string {
	if d.opfDir == "." || d.opfDir == "" {
		return href
	}
	return path.Join(d.opfDir, href)
}

func (d *Document) readFile(name string) ([]byte, error) {
	f, ok := d.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: not in archive", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

var (
	scriptStylePattern = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagPattern         = regexp.MustCompile(`(?s)<[^>]*>`)
	spacePattern       = regexp.MustCompile(`\s+`)
)

// StripTags reduces an XHTML chapter to searchable plain text:
// script/style blocks removed, tags dropped, entities decoded,
// whitespace collapsed.
func StripTags(markup string) string {
	text := scriptStylePattern.ReplaceAllString(markup, " ")
	text = tagPattern.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)
	return strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
}
