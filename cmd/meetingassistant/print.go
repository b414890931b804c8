package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/B-Dastan/ai-meeting-assistant/internal/config"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/meeting"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTable(w io.Writer, recs []meeting.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTITLE\tACTIONS")
	for _, r := range recs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", r.ID, r.Date, truncate(r.Title, 48), len(r.ActionItems))
	}
	return tw.Flush()
}

func printMeeting(w io.Writer, rec *meeting.Record, withTranscript bool) {
	fmt.Fprintf(w, "#%d  %s\n", rec.ID, rec.Title)
	fmt.Fprintf(w, "Date: %s\n", rec.Date)
	if rec.AudioPath != "" {
		fmt.Fprintf(w, "Audio: %s\n", rec.AudioPath)
	}
	fmt.Fprintf(w, "\nSummary\n  %s\n", orNone(rec.Summary))
	printBullets(w, "Key points", rec.KeyPoints)
	printBullets(w, "Action items", rec.ActionItems)
	if withTranscript {
		fmt.Fprintf(w, "\nTranscript\n  %s\n", orNone(rec.Transcript))
	}
	fmt.Fprintln(w)
}

func printBullets(w io.Writer, heading string, items []string) {
	fmt.Fprintf(w, "\n%s\n", heading)
	if len(items) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for _, it := range items {
		fmt.Fprintf(w, "  • %s\n", it)
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "╔═══════════════════════════════════════╗")
	fmt.Fprintf(w, "║ %-37s ║\n", "Meeting Assistant startup summary")
	fmt.Fprintln(w, "╠═══════════════════════════════════════╣")
	printProvider(w, "LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider(w, "STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printRow(w, "Store", string(cfg.Store.Driver))
	printRow(w, "Uploads", cfg.Storage.UploadsDir)
	printRow(w, "Min length", cfg.Pipeline.MinDuration.String())
	printRow(w, "Listen addr", cfg.Server.ListenAddr)
	fmt.Fprintln(w, "╚═══════════════════════════════════════╝")
}

func printProvider(w io.Writer, kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	printRow(w, kind, value)
}

func printRow(w io.Writer, label, value string) {
	fmt.Fprintf(w, "║  %-12s   : %-19s ║\n", label, truncate(value, 19))
}
