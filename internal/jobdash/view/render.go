package view

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	"io"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/pkg/errors"
)

//go:embed templates
var templateFs embed.FS

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFs, "templates/*.html.tmpl"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFs, "templates/*.txt.tmpl"))
)

type page struct {
	Frame          *Frame
	RefreshSeconds int
	RefreshPath    string
}

// WriteHTMLPage writes frame as a complete page. While the frame is loading the page asks the browser to
// reload it from RefreshPath after refresh; a zero refresh disables that.
func WriteHTMLPage(w io.Writer, frame *Frame, refresh time.Duration) error {
	seconds := 0
	if refresh > 0 {
		seconds = int((refresh + time.Second - 1) / time.Second)
	}
	return errors.WithStack(htmlTemplates.ExecuteTemplate(w, "page", &page{
		Frame:          frame,
		RefreshSeconds: seconds,
		RefreshPath:    RefreshPath(frame.JobSpecId),
	}))
}

// WriteHTMLFragment writes the content of frame only, to replace the content of a page that is already shown.
func WriteHTMLFragment(w io.Writer, frame *Frame) error {
	return errors.WithStack(htmlTemplates.ExecuteTemplate(w, "content", frame))
}

// WriteText writes frame for a terminal.
func WriteText(w io.Writer, frame *Frame) error {
	return errors.WithStack(textTemplates.ExecuteTemplate(w, "frame", frame))
}

// HTMLFragmentLines renders the content of frame split into lines, as sent in server-sent events.
func HTMLFragmentLines(frame *Frame) ([]string, error) {
	var buf bytes.Buffer
	if err := WriteHTMLFragment(&buf, frame); err != nil {
		return nil, err
	}
	return strings.Split(strings.TrimRight(buf.String(), "\n"), "\n"), nil
}
