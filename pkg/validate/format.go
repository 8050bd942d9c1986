package validate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/srea-labs/dbx-mcp/pkg/mcpclient"
)

const (
	// MaxBodyChars caps every printed JSON or text body.
	MaxBodyChars = 800

	// MaxDescriptionChars caps tool descriptions in list-tools output.
	MaxDescriptionChars = 80

	// maxListedTools is how many tools list-tools prints.
	maxListedTools = 10
)

// Truncate returns the first n characters of s.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// ShortDescription caps a description at MaxDescriptionChars, appending
// "..." when something was cut.
func ShortDescription(desc string) string {
	short := Truncate(desc, MaxDescriptionChars)
	if short != desc {
		short += "..."
	}
	return short
}

// indentJSON re-indents a JSON document with two spaces. Key order and
// number text are left as received.
func indentJSON(data []byte) string {
	var buf bytes.Buffer
	data = bytes.TrimSpace(data)
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data)
	}
	return buf.String()
}

// printJSON writes the JSON document data indented and capped at
// MaxBodyChars.
func printJSON(w io.Writer, data []byte) {
	fmt.Fprintln(w, Truncate(indentJSON(data), MaxBodyChars))
}

// printTools writes the tool count and the first few tools with short
// descriptions.
func printTools(w io.Writer, resp mcpclient.Response) {
	tools := resp.Tools()
	fmt.Fprintf(w, "Tools available: %d\n", len(tools))
	for i, tool := range tools {
		if i == maxListedTools {
			break
		}
		fmt.Fprintf(w, "- %s: %s\n",
			mcpclient.StringField(tool, "name"),
			ShortDescription(mcpclient.StringField(tool, "description")))
	}
}

// printToolResult prints every text content block of a tools/call response,
// pretty-printing blocks that hold JSON. Responses without result.content are
// dumped whole.
func printToolResult(w io.Writer, resp mcpclient.Response) {
	content, ok := resp.Content()
	if !ok {
		printJSON(w, resp.Raw())
		return
	}
	for _, item := range content {
		if mcpclient.StringField(item, "type") != "text" {
			continue
		}
		text := mcpclient.StringField(item, "text")
		if text == "" {
			continue
		}
		if json.Valid([]byte(text)) {
			printJSON(w, []byte(text))
		} else {
			fmt.Fprintln(w, Truncate(text, MaxBodyChars))
		}
	}
}
