package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconAdd     = "+"
	iconSkip    = "-"
)

// ui writes styled status lines. Colour is only emitted when the writer is a
// terminal that supports it and NO_COLOR is unset.
type ui struct {
	w io.Writer

	highlight lipgloss.Style
	dim       lipgloss.Style
	value     lipgloss.Style
	number    lipgloss.Style
	key       lipgloss.Style

	iconSuccess lipgloss.Style
	iconError   lipgloss.Style
	iconWarning lipgloss.Style
	iconInfo    lipgloss.Style
}

func newUI(w io.Writer) *ui {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(colorProfile(w))

	return &ui{
		w:           w,
		highlight:   r.NewStyle().Foreground(colorCyan),
		dim:         r.NewStyle().Foreground(colorDim),
		value:       r.NewStyle().Foreground(colorWhite),
		number:      r.NewStyle().Foreground(colorCyan),
		key:         r.NewStyle().Foreground(colorGray).Width(12),
		iconSuccess: r.NewStyle().Foreground(colorGreen),
		iconError:   r.NewStyle().Foreground(colorRed),
		iconWarning: r.NewStyle().Foreground(colorYellow),
		iconInfo:    r.NewStyle().Foreground(colorGray),
	}
}

func colorProfile(w io.Writer) termenv.Profile {
	if os.Getenv("NO_COLOR") != "" {
		return termenv.Ascii
	}
	f, ok := w.(*os.File)
	if !ok || (!isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())) {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}

// =============================================================================
// Status Output
// =============================================================================

func (u *ui) success(format string, args ...any) {
	fmt.Fprintln(u.w, u.iconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func (u *ui) errorf(format string, args ...any) {
	fmt.Fprintln(u.w, u.iconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

func (u *ui) warning(format string, args ...any) {
	fmt.Fprintln(u.w, u.iconWarning.Render(iconWarning)+" "+fmt.Sprintf(format, args...))
}

func (u *ui) info(format string, args ...any) {
	fmt.Fprintln(u.w, u.iconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// detail prints an indented, dimmed line.
func (u *ui) detail(format string, args ...any) {
	fmt.Fprintln(u.w, "  "+u.dim.Render(fmt.Sprintf(format, args...)))
}

// file prints an output path.
func (u *ui) file(path string) {
	fmt.Fprintln(u.w, "  "+u.dim.Render(iconArrow)+" "+u.value.Render(path))
}

func (u *ui) keyValue(key, value string) {
	fmt.Fprintln(u.w, u.key.Render(key)+" "+u.value.Render(value))
}

// pkg prints one package progress line, indented by depth.
func (u *ui) pkg(depth int, icon, name, note string) {
	indent := strings.Repeat("  ", max(depth-2, 0))
	line := indent + u.highlight.Render(icon) + " " + name
	if note != "" {
		line += " " + u.dim.Render(note)
	}
	fmt.Fprintln(u.w, line)
}

// stats prints counters on a single line, leaving out zeros.
func (u *ui) stats(parts ...stat) {
	var out []string
	for _, p := range parts {
		if p.n == 0 {
			continue
		}
		out = append(out, u.number.Render(fmt.Sprint(p.n))+" "+u.dim.Render(p.label))
	}
	if len(out) == 0 {
		return
	}
	fmt.Fprintln(u.w, "  "+strings.Join(out, u.dim.Render(" · ")))
}

type stat struct {
	n     int
	label string
}
