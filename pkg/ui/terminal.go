package ui

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"artbot/pkg/picker"
	"artbot/pkg/publisher"
)

// ASCIILogo is printed at the top of interactive runs
const ASCIILogo = `
   █████╗ ██████╗ ████████╗██████╗  ██████╗ ████████╗
  ██╔══██╗██╔══██╗╚══██╔══╝██╔══██╗██╔═══██╗╚══██╔══╝
  ███████║██████╔╝   ██║   ██████╔╝██║   ██║   ██║
  ██╔══██║██╔══██╗   ██║   ██╔══██╗██║   ██║   ██║
  ██║  ██║██║  ██║   ██║   ██████╔╝╚██████╔╝   ██║
  ╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝   ╚═════╝  ╚═════╝    ╚═╝
      open-access museum art, one post at a time
`

// ANSI color sequences
const (
	colorCyan    = "\033[36m%s\033[0m"
	colorYellow  = "\033[33m%s\033[0m"
	colorRed     = "\033[31m%s\033[0m"
	colorGreen   = "\033[32m%s\033[0m"
	colorMagenta = "\033[35m%s\033[0m"
	colorDim     = "\033[2m%s\033[0m"
)

// Printer writes human-facing output, colored only when the destination is
// a terminal
type Printer struct {
	w     io.Writer
	color bool
}

// NewPrinter creates a printer for w
func NewPrinter(w io.Writer) *Printer {
	color := false
	if f, ok := w.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd())) && os.Getenv("NO_COLOR") == ""
	}
	return &Printer{w: w, color: color}
}

// Stdout returns a printer for standard output
func Stdout() *Printer {
	return NewPrinter(os.Stdout)
}

func (p *Printer) paint(format, text string) string {
	if !p.color {
		return text
	}
	return fmt.Sprintf(format, text)
}

// Logo prints the ASCII logo
func (p *Printer) Logo() {
	fmt.Fprint(p.w, p.paint(colorCyan, ASCIILogo))
}

// Error prints an error message, with err appended when non-nil
func (p *Printer) Error(msg string, err error) {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	fmt.Fprintln(p.w, p.paint(colorRed, msg))
}

// Success prints a success message
func (p *Printer) Success(msg string) {
	fmt.Fprintln(p.w, p.paint(colorGreen, msg))
}

// Info prints a label and value pair
func (p *Printer) Info(label, value string) {
	fmt.Fprintf(p.w, "%s: %s\n", p.paint(colorCyan, label), p.paint(colorYellow, value))
}

// Warning prints a warning message
func (p *Printer) Warning(msg string) {
	fmt.Fprintln(p.w, p.paint(colorYellow, msg))
}

// Highlight prints an emphasised message
func (p *Printer) Highlight(msg string) {
	fmt.Fprintln(p.w, p.paint(colorMagenta, msg))
}

// Dim prints secondary text
func (p *Printer) Dim(msg string) {
	fmt.Fprintln(p.w, p.paint(colorDim, msg))
}

// Artwork prints the selected artwork and its caption
func (p *Printer) Artwork(a *picker.Artwork) {
	p.Info("Object", fmt.Sprintf("%d", a.ObjectID))
	p.Info("Title", a.Title)
	p.Info("Artist", a.Artist)
	if a.DetailURL != "" {
		p.Info("Details", a.DetailURL)
	}
	p.Info("Image", a.ImageURL)
	p.Highlight(a.Caption())
}

// Receipt prints where a post was published
func (p *Printer) Receipt(r *publisher.Receipt) {
	if r == nil {
		return
	}
	p.Success("Posted " + r.ID)
	if r.URL != "" {
		p.Info("URL", r.URL)
	}
}
