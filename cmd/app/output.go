package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/atvirokodosprendimai/culturalatlas/internal/presentation"
)

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printKV(rows [][2]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	_ = w.Flush()
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("no results")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func formatUint(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatWhen(t *presentation.TimespanJSON) string {
	if t == nil {
		return "-"
	}
	begin := orDash(t.BeginFrom)
	if t.BeginTo != "" {
		begin += ".." + t.BeginTo
	}
	end := orDash(t.EndFrom)
	if t.EndTo != "" {
		end += ".." + t.EndTo
	}
	return begin + " / " + end
}

func printEntity(e presentation.EntityJSON) {
	types := make([]string, 0, len(e.Types))
	for _, t := range e.Types {
		label := t.Name
		if t.Value != "" {
			label += "=" + t.Value
		}
		types = append(types, label)
	}
	printKV([][2]string{
		{"id", formatUint(e.ID)},
		{"name", e.Name},
		{"class", e.SystemClass + " (" + e.CidocClass + ")"},
		{"view", orDash(e.View)},
		{"description", orDash(e.Description)},
		{"when", formatWhen(e.When)},
		{"types", orDash(strings.Join(types, ", "))},
		{"aliases", orDash(strings.Join(e.Aliases, ", "))},
		{"updated", formatTime(e.UpdatedAt)},
	})
}

func printEntities(items []presentation.EntityJSON) {
	rows := make([][]string, 0, len(items))
	for _, e := range items {
		rows = append(rows, []string{formatUint(e.ID), e.SystemClass, e.Name, formatWhen(e.When)})
	}
	printTable([]string{"ID", "CLASS", "NAME", "WHEN"}, rows)
}

func printLinks(items []presentation.LinkJSON) {
	rows := make([][]string, 0, len(items))
	for _, l := range items {
		rows = append(rows, []string{
			formatUint(l.ID),
			l.Domain.Name + " #" + formatUint(l.Domain.ID),
			l.Property + " " + l.PropertyName,
			l.Range.Name + " #" + formatUint(l.Range.ID),
			orDash(l.Description),
		})
	}
	printTable([]string{"ID", "DOMAIN", "PROPERTY", "RANGE", "DESCRIPTION"}, rows)
}

// printTypeTree indents every hierarchy below its top-level type.
func printTypeTree(nodes map[string]presentation.TypeNodeJSON) {
	byID := make(map[uint]presentation.TypeNodeJSON, len(nodes))
	var roots []presentation.TypeNodeJSON
	for _, n := range nodes {
		byID[n.ID] = n
		if len(n.Root) == 0 {
			roots = append(roots, n)
		}
	}
	if len(roots) == 0 {
		fmt.Println("no results")
		return
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].Name < roots[j].Name })

	var walk func(n presentation.TypeNodeJSON, depth int)
	walk = func(n presentation.TypeNodeJSON, depth int) {
		fmt.Printf("%s%s #%d (%d)\n", strings.Repeat("  ", depth), n.Name, n.ID, n.Count)
		children := make([]presentation.TypeNodeJSON, 0)
		for _, other := range byID {
			if len(other.Root) > 0 && other.Root[0] == n.ID {
				children = append(children, other)
			}
		}
		sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })
		for _, child := range children {
			walk(child, depth+1)
		}
	}
	for _, r := range roots {
		walk(r, 0)
	}
}

func printIDs(ids []uint) {
	if len(ids) == 0 {
		fmt.Println("no results")
		return
	}
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, formatUint(id))
	}
	fmt.Println(strings.Join(parts, " "))
}

func printHops(items []presentation.HopJSON) {
	rows := make([][]string, 0, len(items))
	for _, h := range items {
		property := h.Property
		if h.Inverse {
			property += "i"
		}
		rows = append(rows, []string{
			strconv.Itoa(h.Depth),
			h.FromName + " #" + formatUint(h.FromID),
			property,
			h.ToName + " #" + formatUint(h.ToID),
		})
	}
	printTable([]string{"DEPTH", "FROM", "PROPERTY", "TO"}, rows)
}

func printLogs(items []presentation.LogJSON) {
	rows := make([][]string, 0, len(items))
	for _, l := range items {
		meta := "-"
		if len(l.Metadata) > 0 {
			if b, err := json.Marshal(l.Metadata); err == nil {
				meta = string(b)
			}
		}
		rows = append(rows, []string{formatUint(l.ID), formatTime(l.CreatedAt), l.Action, meta})
	}
	printTable([]string{"ID", "AT", "ACTION", "METADATA"}, rows)
}
