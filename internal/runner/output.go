package runner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromastyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"
	"github.com/tidwall/pretty"

	"github.com/sadopc/spoonemu/internal/diff"
)

// TextOptions controls PrintText.
type TextOptions struct {
	ShowBody  bool
	Highlight bool   // syntax-highlight the body when w is a color terminal
	Theme     string // chroma style name
}

// PrintText outputs a result in human-readable format.
func PrintText(w io.Writer, res *Result, opts TextOptions) {
	re := lipgloss.NewRenderer(w)
	color := re.ColorProfile() != termenv.Ascii

	bold := re.NewStyle().Bold(true)
	added := re.NewStyle().Foreground(lipgloss.Color("2"))
	removed := re.NewStyle().Foreground(lipgloss.Color("1"))
	modified := re.NewStyle().Foreground(lipgloss.Color("3"))
	faint := re.NewStyle().Faint(true)

	fmt.Fprintf(w, "%s %s\n", bold.Render(res.Script), res.URL)
	if res.Skipped {
		fmt.Fprintf(w, "  skipped: %s\n", res.SkipReason)
		return
	}

	fmt.Fprintf(w, "  status: %s  %s\n",
		statusStyle(re, res.Status).Render(statusLine(res.Status)),
		faint.Render(formatDuration(res.Duration)))
	if res.FetchError != "" {
		fmt.Fprintf(w, "  fetch error: %s\n", removed.Render(res.FetchError))
	}

	fmt.Fprintln(w, bold.Render("Headers"))
	if len(res.Changes) == 0 {
		fmt.Fprintln(w, faint.Render("  (none)"))
	}
	for _, c := range res.Changes {
		switch c.Op {
		case diff.Added:
			fmt.Fprintln(w, added.Render(fmt.Sprintf("  + %s: %s", c.Name, c.New)))
		case diff.Removed:
			fmt.Fprintln(w, removed.Render(fmt.Sprintf("  - %s: %s", c.Name, c.Old)))
		case diff.Modified:
			fmt.Fprintln(w, modified.Render(fmt.Sprintf("  ~ %s: %s -> %s", c.Name, c.Old, c.New)))
		default:
			fmt.Fprintf(w, "    %s: %s\n", c.Name, c.New)
		}
	}
	if len(res.Changes) > 0 && !diff.Changed(res.Changes) {
		fmt.Fprintln(w, faint.Render("  (unchanged by script)"))
	}

	if len(res.Logs) > 0 {
		fmt.Fprintln(w, bold.Render("Logs"))
		for _, l := range res.Logs {
			fmt.Fprintf(w, "  [log] %s\n", l)
		}
	}

	if len(res.BodyWrites) > 0 {
		fmt.Fprintf(w, "%s %d call(s), %s\n", bold.Render("setBody"),
			len(res.BodyWrites), humanize.Bytes(uint64(len(res.BodyWrites[len(res.BodyWrites)-1]))))
	}

	if opts.ShowBody && res.Body != "" {
		fmt.Fprintf(w, "%s %s\n", bold.Render("Body"), faint.Render(humanize.Bytes(uint64(len(res.Body)))))
		fmt.Fprint(w, renderBody(res.Body, res.ContentType, color && opts.Highlight, opts.Theme))
		if !strings.HasSuffix(res.Body, "\n") {
			fmt.Fprintln(w)
		}
	}

	if opts.ShowBody && res.Body != "" && len(res.BodyWrites) > 0 {
		fmt.Fprintln(w, bold.Render("setBody diff"))
		for _, l := range diff.Lines(splitLines(res.Body), splitLines(res.BodyWrites[len(res.BodyWrites)-1])) {
			switch l.Op {
			case diff.Added:
				fmt.Fprintln(w, added.Render("  + "+l.Content))
			case diff.Removed:
				fmt.Fprintln(w, removed.Render("  - "+l.Content))
			default:
				fmt.Fprintln(w, "    "+l.Content)
			}
		}
	}

	if res.Error != nil {
		fmt.Fprintf(w, "  %s %s\n", removed.Render("✗"), res.Error)
	}
}

// splitLines splits s on "\n" and "\r\n", ignoring a trailing terminator.
func splitLines(s string) []string {
	s = strings.TrimSuffix(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// PrintJSON outputs a result as indented JSON.
func PrintJSON(w io.Writer, res *Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	_, err = w.Write(pretty.Pretty(data))
	return err
}

func statusLine(status string) string {
	code, _ := strconv.Atoi(status)
	if text := http.StatusText(code); text != "" {
		return status + " " + text
	}
	return status
}

func statusStyle(re *lipgloss.Renderer, status string) lipgloss.Style {
	code, _ := strconv.Atoi(status)
	s := re.NewStyle().Bold(true)
	switch {
	case code >= 200 && code < 300:
		return s.Foreground(lipgloss.Color("2"))
	case code >= 300 && code < 400:
		return s.Foreground(lipgloss.Color("6"))
	case code >= 400 && code < 500:
		return s.Foreground(lipgloss.Color("3"))
	default:
		return s.Foreground(lipgloss.Color("1"))
	}
}

// renderBody pretty-prints JSON bodies and optionally highlights them.
func renderBody(body, contentType string, highlightBody bool, theme string) string {
	lexerName := detectLexer(contentType)
	if lexerName == "json" && json.Valid([]byte(body)) {
		body = string(pretty.Pretty([]byte(body)))
	}
	if !highlightBody {
		return body
	}
	return highlight(body, lexerName, theme)
}

// detectLexer maps Content-Type to a chroma lexer name.
func detectLexer(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return "json"
	case strings.Contains(ct, "html"):
		return "html"
	case strings.Contains(ct, "xml"):
		return "xml"
	case strings.Contains(ct, "css"):
		return "css"
	case strings.Contains(ct, "javascript"):
		return "javascript"
	default:
		return "text"
	}
}

func highlight(source, lexerName, theme string) string {
	lexer := lexers.Get(lexerName)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromastyles.Get(theme)
	if style == nil {
		style = chromastyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return source
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return source
	}
	return buf.String()
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
