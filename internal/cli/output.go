package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mvp-joe/depsolver/internal/cycles"
	"github.com/mvp-joe/depsolver/internal/depsolver"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func checkFormat(f string) error {
	switch f {
	case formatText, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown format %q (want text, json or yaml)", f)
}

// writeStructured encodes v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown format %q", format)
}

func writeReport(w io.Writer, format string, rep *depsolver.Report) error {
	if format != formatText {
		return writeStructured(w, format, rep)
	}
	targets := make([]string, len(rep.Targets))
	for i, t := range rep.Targets {
		targets[i] = t.String()
	}
	fmt.Fprintf(w, "Closure of %s\n", strings.Join(targets, ", "))
	fmt.Fprintf(w, "  Nodes: %s   Stubs: %s\n", formatNumber(len(rep.Nodes)), formatNumber(len(rep.Stubs)))
	fmt.Fprintln(w)
	for _, s := range rep.Stubs {
		fmt.Fprintf(w, "%s %s\n", s.Kind, s.FQN)
		for _, a := range s.Annotations {
			fmt.Fprintf(w, "  @%s\n", a)
		}
		for _, f := range s.Fields {
			fmt.Fprintf(w, "  field  %s\n", f)
		}
		for _, c := range s.Constructors {
			fmt.Fprintf(w, "  ctor   %s\n", c)
		}
		for _, m := range s.Methods {
			fmt.Fprintf(w, "  method %s\n", m)
		}
	}
	writeList(w, "External types", rep.External)
	writeList(w, "Missing sources", rep.Missing)
	if len(rep.Fallbacks) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Approximate bindings:")
		for _, f := range rep.Fallbacks {
			if len(f.ArgTypes) > 0 {
				fmt.Fprintf(w, "  %s calls %s(%s) via %s -> %s\n", f.From, f.Call, strings.Join(f.ArgTypes, ", "), f.Strategy, strings.Join(f.Targets, ", "))
				continue
			}
			fmt.Fprintf(w, "  %s calls %s via %s -> %s\n", f.From, f.Call, f.Strategy, strings.Join(f.Targets, ", "))
		}
	}
	return nil
}

func writeAnalysis(w io.Writer, format string, a *cycles.Analysis) error {
	if format != formatText {
		return writeStructured(w, format, a)
	}
	fmt.Fprintf(w, "Components: %s   Dependencies: %s   Cycles: %s\n",
		formatNumber(len(a.Components)), formatNumber(len(a.Dependencies)), formatNumber(len(a.Cycles)))
	if len(a.Cycles) == 0 {
		fmt.Fprintln(w, "✓ No injection cycles")
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Cycles:")
	for _, c := range a.Cycles {
		fmt.Fprintf(w, "  %s\n", c)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Cut %d injection point(s), total weight %.1f:\n", len(a.Cuts), a.TotalWeight)
	for _, c := range a.Cuts {
		fmt.Fprintf(w, "  %s -> %s  %s %s  (%.1f)\n", c.From, c.To, c.Kind, c.Member, c.Weight)
	}
	return nil
}

func writeList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", title)
	for _, s := range items {
		fmt.Fprintf(w, "  %s\n", s)
	}
}

// formatNumber formats integer with thousand separators.
// Examples: 1234 -> "1,234", 1234567 -> "1,234,567"
func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
