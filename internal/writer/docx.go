package writer

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"github.com/insightdelivered/statement-editor/internal/models"
)

// DOCXWriter renders a minimal WordprocessingML document.
type DOCXWriter struct{}

func (DOCXWriter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}

// Zip entries carry a fixed timestamp so identical statements produce
// identical archives.
var docxModified = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

const docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const docxRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

func (DOCXWriter) Render(w io.Writer, st *models.Statement) error {
	zw := zip.NewWriter(w)
	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", []byte(docxContentTypes)},
		{"_rels/.rels", []byte(docxRels)},
		{"word/document.xml", documentXML(st)},
	}
	for _, p := range parts {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: p.name, Method: zip.Deflate, Modified: docxModified})
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", p.name, err)
		}
		if _, err := fw.Write(p.data); err != nil {
			return fmt.Errorf("failed to write %s: %w", p.name, err)
		}
	}
	return zw.Close()
}

type docBuilder struct {
	bytes.Buffer
}

func (b *docBuilder) text(s string) {
	_ = xml.EscapeText(b, []byte(s))
}

func (b *docBuilder) run(s string, bold bool, size int) {
	b.WriteString("<w:r>")
	if bold || size > 0 {
		b.WriteString("<w:rPr>")
		if bold {
			b.WriteString("<w:b/>")
		}
		if size > 0 {
			fmt.Fprintf(b, `<w:sz w:val="%d"/>`, size)
		}
		b.WriteString("</w:rPr>")
	}
	b.WriteString(`<w:t xml:space="preserve">`)
	b.text(s)
	b.WriteString("</w:t></w:r>")
}

func (b *docBuilder) paragraph(s string, bold bool, size int, align string) {
	b.WriteString("<w:p>")
	if align != "" {
		fmt.Fprintf(b, `<w:pPr><w:jc w:val="%s"/></w:pPr>`, align)
	}
	if s != "" {
		b.run(s, bold, size)
	}
	b.WriteString("</w:p>")
}

func (b *docBuilder) table(rows [][]string, boldFirst, boldLast bool) {
	b.WriteString(`<w:tbl><w:tblPr><w:tblStyle w:val="TableGrid"/><w:tblW w:w="0" w:type="auto"/><w:tblBorders>`)
	for _, side := range []string{"top", "left", "bottom", "right", "insideH", "insideV"} {
		fmt.Fprintf(b, `<w:%s w:val="single" w:sz="4" w:space="0" w:color="999999"/>`, side)
	}
	b.WriteString("</w:tblBorders></w:tblPr>")
	for i, row := range rows {
		bold := (boldFirst && i == 0) || (boldLast && i == len(rows)-1)
		b.WriteString("<w:tr>")
		for _, cell := range row {
			b.WriteString("<w:tc><w:p>")
			if cell != "" {
				b.run(cell, bold, 18)
			}
			b.WriteString("</w:p></w:tc>")
		}
		b.WriteString("</w:tr>")
	}
	b.WriteString("</w:tbl>")
}

func documentXML(st *models.Statement) []byte {
	var b docBuilder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)

	b.paragraph(title(st), true, 32, "center")
	b.paragraph("Account Information", true, 26, "")
	var info [][]string
	for _, r := range headerRows(st.Header) {
		info = append(info, []string{r[0], r[1]})
	}
	info = append(info, []string{"Opening Balance", st.OpeningBalance.StringFixed(2)})
	b.table(info, false, false)
	b.paragraph("", false, 0, "")

	b.paragraph("Transaction Details", true, 26, "")
	rows := [][]string{{"Date", "Description", "Credit", "Debit", "Balance"}}
	for _, txn := range st.Transactions {
		rows = append(rows, []string{
			txn.Date.Format("02-01-2006"),
			txn.Description,
			dashIfEmpty(formatAmount(txn.Credit)),
			dashIfEmpty(formatAmount(txn.Debit)),
			txn.Balance.StringFixed(2),
		})
	}
	rows = append(rows, []string{"TOTAL", "", st.TotalCredits.StringFixed(2), st.TotalDebits.StringFixed(2), st.ClosingBalance.StringFixed(2)})
	b.table(rows, true, true)

	b.WriteString(`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/><w:pgMar w:top="1134" w:right="1134" w:bottom="1134" w:left="1134" w:header="708" w:footer="708" w:gutter="0"/></w:sectPr>`)
	b.WriteString("</w:body></w:document>")
	return b.Bytes()
}
