package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"ownership/internal/matching"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		return statusKindColors(kind).Sprint(base)
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColors(kind statusKind) text.Colors {
	switch kind {
	case statusOK:
		return text.Colors{text.FgGreen}
	case statusWarn:
		return text.Colors{text.FgYellow}
	case statusError:
		return text.Colors{text.FgRed}
	default:
		return text.Colors{text.FgBlue}
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		c := text.Colors{text.FgBlue}
		line, rule = c.Sprint(line), c.Sprint(rule)
	}
	return []string{line, rule}
}

// verdictLabel colors duplicate red and similar yellow on terminals.
func verdictLabel(status matching.Status, colorize bool) string {
	label := string(status)
	if !colorize {
		return label
	}
	switch status {
	case matching.StatusDuplicate:
		return text.Colors{text.FgRed, text.Bold}.Sprint(label)
	case matching.StatusSimilar:
		return text.Colors{text.FgYellow}.Sprint(label)
	default:
		return text.Colors{text.FgGreen}.Sprint(label)
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
