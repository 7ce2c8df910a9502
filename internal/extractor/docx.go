package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const docxBody = "word/document.xml"

// extractDOCX reads the text of a Word document. Paragraphs become lines,
// table cells are tab separated, and explicit page breaks split pages.
func extractDOCX(data []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("not a valid DOCX archive: %w", err)
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == docxBody {
			body = f
			break
		}
	}
	if body == nil {
		return nil, errors.New("DOCX archive has no " + docxBody)
	}

	rc, err := body.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", docxBody, err)
	}
	defer rc.Close()

	return readDocumentXML(rc)
}

func readDocumentXML(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		pages     []string
		page      strings.Builder
		line      strings.Builder
		inText    bool
		cellDepth int
	)
	flushLine := func() {
		if l := strings.TrimRight(line.String(), "\t "); l != "" {
			page.WriteString(l)
			page.WriteByte('\n')
		}
		line.Reset()
	}
	flushPage := func() {
		flushLine()
		if p := strings.TrimSpace(page.String()); p != "" {
			pages = append(pages, p)
		}
		page.Reset()
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", docxBody, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tc":
				cellDepth++
			case "tab":
				line.WriteByte('\t')
			case "br":
				if attr(t, "type") == "page" {
					flushPage()
				} else {
					flushLine()
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if cellDepth == 0 {
					flushLine()
				} else if line.Len() > 0 && !strings.HasSuffix(line.String(), "\t") {
					// Paragraphs inside a table cell stay on the row's line.
					line.WriteByte(' ')
				}
			case "tc":
				cellDepth--
				cell := strings.TrimRight(line.String(), " ")
				line.Reset()
				line.WriteString(cell)
				line.WriteByte('\t')
			case "tr":
				flushLine()
			}
		case xml.CharData:
			if inText {
				line.Write(t)
			}
		}
	}
	flushPage()
	return pages, nil
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
