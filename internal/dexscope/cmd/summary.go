package cmd

import (
	"fmt"
	"io"
	"strings"

	"dexscope/internal/batch"
	"dexscope/internal/dex"
	"dexscope/internal/dexscope/styles"
	"dexscope/internal/output"
	"dexscope/internal/ui/colorize"
)

// summaryClassLimit bounds the class table unless --full is given.
const summaryClassLimit = 50

// jsonResult is one entry of the --json output.
type jsonResult struct {
	Source    string         `json:"source"`
	Error     string         `json:"error,omitempty"`
	Container *dex.Container `json:"container,omitempty"`
}

func writeJSON(w io.Writer, results []batch.Result) error {
	out := make([]jsonResult, len(results))
	for i, r := range results {
		out[i] = jsonResult{Source: r.Source.String(), Container: r.Container}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		}
	}
	b, err := output.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	doc, _ := colorize.JSON(string(b))
	_, err = fmt.Fprintln(w, doc)
	return err
}

func writeSummary(w io.Writer, results []batch.Result, full bool, width int) error {
	md := summaryMarkdown(results, full)
	if styles.NoColor() {
		_, err := io.WriteString(w, md)
		return err
	}
	rendered, err := styles.GetMarkdownRenderer(width).Render(md)
	if err != nil {
		return fmt.Errorf("render summary: %w", err)
	}
	_, err = io.WriteString(w, rendered)
	return err
}

// summaryMarkdown describes every decoded container: header facts, table
// sizes and a class overview.
func summaryMarkdown(results []batch.Result, full bool) string {
	var sb strings.Builder
	sb.WriteString("# dexscope\n\n")
	for _, r := range results {
		fmt.Fprintf(&sb, "## %s/%s\n\n", r.Source.Group, r.Source.Name)
		if r.Err != nil {
			fmt.Fprintf(&sb, "```\n; %s\n; decode failed: %v\n```\n\n", r.Source, r.Err)
			continue
		}
		writeContainerSummary(&sb, r.Source.String(), r.Container, full)
	}
	return sb.String()
}

func writeContainerSummary(sb *strings.Builder, name string, c *dex.Container, full bool) {
	h := c.Header
	fmt.Fprintf(sb, "```\n; %s\n; dex %s, %d bytes\n; adler32 0x%08x\n; sha1 %s\n```\n\n",
		name, h.Version, h.FileSize, h.Checksum, h.SHA1())

	st := c.Stats()
	sb.WriteString("| table | entries |\n|---|---:|\n")
	for _, row := range []struct {
		name string
		n    int
	}{
		{"strings", st.Strings},
		{"types", st.Types},
		{"protos", st.Protos},
		{"fields", st.Fields},
		{"methods", st.Methods},
		{"classes", st.Classes},
		{"code items", st.Code},
	} {
		fmt.Fprintf(sb, "| %s | %d |\n", row.name, row.n)
	}
	sb.WriteString("\n")

	if len(c.Classes) == 0 {
		return
	}
	sb.WriteString("### Classes\n\n| class | extends | modifiers | fields | methods |\n|---|---|---|---:|---:|\n")
	for i, cls := range c.Classes {
		if !full && i == summaryClassLimit {
			fmt.Fprintf(sb, "\n*%d more classes, use --full to list all*\n", len(c.Classes)-i)
			break
		}
		fields, methods := memberCounts(cls.Data)
		fmt.Fprintf(sb, "| `%s` | `%s` | %s | %d | %d |\n",
			dex.Descriptor(cls.Name), dex.Descriptor(cls.SuperClass), cls.AccessFlags, fields, methods)
	}
	sb.WriteString("\n")
}

func memberCounts(d *dex.ClassData) (fields, methods int) {
	if d == nil {
		return 0, 0
	}
	return len(d.StaticFields) + len(d.InstanceFields), len(d.DirectMethods) + len(d.VirtualMethods)
}

// classDetail renders the members of one class for the browser.
func classDetail(c *dex.Container, cls *dex.Class) string {
	var sb strings.Builder

	kind := "class"
	switch {
	case cls.AccessFlags&dex.AccAnnotation != 0:
		kind = "@interface"
	case cls.AccessFlags&dex.AccInterface != 0:
		kind = "interface"
	case cls.AccessFlags&dex.AccEnum != 0:
		kind = "enum"
	}
	fmt.Fprintf(&sb, "%s %s %s", styles.Modifier.Render(cls.AccessFlags.String()), kind,
		styles.Member.Render(dex.Descriptor(cls.Name)))
	if cls.SuperClass != "" {
		fmt.Fprintf(&sb, " extends %s", styles.TypeName.Render(dex.Descriptor(cls.SuperClass)))
	}
	sb.WriteString("\n")
	if cls.SourceFile != "" {
		sb.WriteString(styles.Muted.Render("// "+cls.SourceFile) + "\n")
	}

	if cls.Data == nil {
		sb.WriteString("\n" + styles.Muted.Render("no class data") + "\n")
		return finish(sb.String())
	}

	fieldSection := func(title string, list []dex.EncodedField) {
		if len(list) == 0 {
			return
		}
		fmt.Fprintf(&sb, "\n%s\n", styles.Title.Render(title))
		for _, f := range list {
			fmt.Fprintf(&sb, "  %s %s %s\n", styles.Modifier.Render(f.AccessFlags.String()),
				styles.TypeName.Render(dex.Descriptor(f.Type)), f.Name)
		}
	}
	methodSection := func(title string, list []dex.EncodedMethod) {
		if len(list) == 0 {
			return
		}
		fmt.Fprintf(&sb, "\n%s\n", styles.Title.Render(title))
		for _, m := range list {
			sig := c.Methods[m.MethodIndex].Proto.Signature()
			code := styles.Muted.Render("no code")
			if m.Code != nil {
				code = styles.Muted.Render(fmt.Sprintf("%d units, %d registers @0x%x",
					len(m.Code.RawInstructions)/2, m.Code.RegistersSize, m.CodeOffset))
			}
			fmt.Fprintf(&sb, "  %s %s%s  %s\n", styles.Modifier.Render(m.AccessFlags.String()),
				styles.Member.Render(m.Name), sig, code)
		}
	}
	fieldSection("Static fields", cls.Data.StaticFields)
	fieldSection("Instance fields", cls.Data.InstanceFields)
	methodSection("Direct methods", cls.Data.DirectMethods)
	methodSection("Virtual methods", cls.Data.VirtualMethods)
	return finish(sb.String())
}

func finish(s string) string {
	if styles.NoColor() {
		return colorize.Strip(s)
	}
	return s
}
