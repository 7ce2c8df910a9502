package writer

import (
	"encoding/json"
	"io"

	"github.com/insightdelivered/statement-editor/internal/models"
)

// JSONWriter writes the statement as indented JSON.
type JSONWriter struct{}

func (JSONWriter) ContentType() string { return "application/json" }

func (JSONWriter) Render(w io.Writer, st *models.Statement) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(st)
}
