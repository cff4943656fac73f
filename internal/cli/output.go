package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

type printer struct {
	format string
	w      io.Writer
}

// emit writes v as JSON, or calls text for the human form.
func (p printer) emit(v any, text func(w io.Writer)) error {
	if p.format == "json" {
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(p.w)
	return nil
}

func (p printer) line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}
