package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/and161185/playqueue/internal/api/queuev1"
)

var (
	colorActive    = color.New(color.FgYellow, color.Bold)
	colorCompleted = color.New(color.FgGreen)
	colorDim       = color.New(color.Faint)
)

func statusLabel(s string) string {
	switch s {
	case "active":
		return colorActive.Sprint("ACTIVE   ")
	case "completed":
		return colorCompleted.Sprint("DONE     ")
	default:
		return "QUEUED   "
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printItems(w io.Writer, items []*queuev1.Item, meta *queuev1.PageMeta) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No items found")
		return
	}
	fmt.Fprintf(w, "\n%-36s %-9s %8s  %s\n", "ID", "STATUS", "POS", "TITLE")
	fmt.Fprintln(w, strings.Repeat("─", 80))
	for _, it := range items {
		pos := colorDim.Sprint("       -")
		if it.Position != nil {
			pos = fmt.Sprintf("%8d", *it.Position)
		}
		fmt.Fprintf(w, "%-36s %s %s  %s\n", it.ID, statusLabel(it.Status), pos, it.Title)
	}
	if meta != nil {
		fmt.Fprintf(w, "\npage %d/%d, %d items\n", meta.CurrentPage, meta.TotalPages, meta.TotalCount)
	}
}

func printItem(w io.Writer, it *queuev1.Item) {
	fmt.Fprintf(w, "%s %s\n", statusLabel(it.Status), it.Title)
	fmt.Fprintf(w, "  id:         %s\n", it.ID)
	fmt.Fprintf(w, "  identifier: %s\n", it.Identifier)
	fmt.Fprintf(w, "  url:        %s\n", it.URL)
	fmt.Fprintf(w, "  source:     %s\n", it.Source)
	if it.Position != nil {
		fmt.Fprintf(w, "  position:   %d\n", *it.Position)
	}
	if it.AfterID != "" {
		fmt.Fprintf(w, "  after:      %s\n", it.AfterID)
	}
	if it.CompletedAt != nil {
		fmt.Fprintf(w, "  completed:  %s\n", it.CompletedAt.Format("2006-01-02 15:04:05Z07:00"))
	}
}
