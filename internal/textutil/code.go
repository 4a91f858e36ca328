package textutil

import (
	"regexp"
	"strings"
)

// preprocessorDirectives begin with '#' but are code, not comments.
var preprocessorDirectives = []string{
	"include", "define", "undef", "if", "ifdef", "ifndef", "elif", "else", "endif",
	"pragma", "import", "error", "!", "[",
}

var terminatorBeforeBrace = regexp.MustCompile(`;+\s*}`)

// StripComments removes block comments (/* */), line comments (// and #),
// and keeps string literals intact. A '#' only opens a comment at the start
// of a line or after whitespace, and never when it introduces a preprocessor
// directive, shebang, or attribute.
func StripComments(src string) string {
	runes := []rune(src)
	var b strings.Builder
	b.Grow(len(src))

	var quote rune
	escaped := false
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if quote != 0 {
			b.WriteRune(r)
			switch {
			case escaped:
				escaped = false
			case r == '\\' && quote != '`':
				escaped = true
			case r == quote:
				quote = 0
			case r == '\n' && quote != '`':
				quote = 0
			}
			continue
		}

		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}
		switch {
		case r == '"' || r == '\'' || r == '`':
			quote = r
			b.WriteRune(r)
		case r == '/' && next == '*':
			end := indexRunes(runes, i+2, "*/")
			if end < 0 {
				i = len(runes)
			} else {
				i = end + 1
			}
			b.WriteRune(' ')
		case r == '/' && next == '/':
			i = skipLine(runes, i)
		case r == '#' && atWordBoundary(runes, i) && !isDirective(runes[i+1:]):
			i = skipLine(runes, i)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeCode strips comments, drops statement terminators that end a line
// or precede a closing brace, and collapses all whitespace to single spaces.
func NormalizeCode(src string) string {
	stripped := StripComments(src)
	lines := strings.Split(stripped, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(strings.TrimRight(line, " \t\r"), ";")
	}
	collapsed := strings.Join(strings.Fields(strings.Join(lines, "\n")), " ")
	collapsed = terminatorBeforeBrace.ReplaceAllString(collapsed, " }")
	return strings.Join(strings.Fields(collapsed), " ")
}

type identifierPattern struct {
	kind    string
	pattern *regexp.Regexp
}

var identifierPatterns = []identifierPattern{
	{"func", regexp.MustCompile(`\bfunc\s+(?:\([^)]*\)\s*)?([A-Za-z_]\w*)`)},
	{"func", regexp.MustCompile(`\bdef\s+([A-Za-z_]\w*)`)},
	{"func", regexp.MustCompile(`\bfunction\s*\*?\s*([A-Za-z_$][\w$]*)`)},
	{"func", regexp.MustCompile(`\bfn\s+([A-Za-z_]\w*)`)},
	{"var", regexp.MustCompile(`\b(?:var|let|const|val)\s+(?:mut\s+)?([A-Za-z_$][\w$]*)`)},
	{"var", regexp.MustCompile(`([A-Za-z_]\w*)\s*:=`)},
	{"type", regexp.MustCompile(`\b(?:type|class|struct|interface|enum|trait)\s+([A-Za-z_]\w*)`)},
	{"import", regexp.MustCompile(`\bimport\s+(?:[A-Za-z_.]\w*\s+)?"([^"]+)"`)},
	{"import", regexp.MustCompile(`\bimport\s+([A-Za-z_][\w.]*)`)},
	{"import", regexp.MustCompile(`\bfrom\s+([A-Za-z_.][\w.]*)\s+import\b`)},
	{"import", regexp.MustCompile(`\bfrom\s+['"]([^'"]+)['"]`)},
	{"import", regexp.MustCompile(`\brequire\(\s*['"]([^'"]+)['"]\s*\)`)},
	{"import", regexp.MustCompile(`\buse\s+([A-Za-z_][\w:]*)`)},
	{"import", regexp.MustCompile(`#include\s*[<"]([^>"]+)[>"]`)},
}

var (
	importBlock  = regexp.MustCompile(`\bimport\s*\(([^)]*)\)`)
	quotedString = regexp.MustCompile(`"([^"]+)"`)
)

// ExtractIdentifiers pattern-matches declared function, variable, and type
// names plus imported module names. Each feature is prefixed with its kind,
// for example "func:main" or "import:fmt". The result is sorted and unique.
func ExtractIdentifiers(src string) []string {
	features := make([]string, 0, 16)
	for _, p := range identifierPatterns {
		for _, m := range p.pattern.FindAllStringSubmatch(src, -1) {
			if len(m) > 1 && m[1] != "" {
				features = append(features, p.kind+":"+m[1])
			}
		}
	}
	for _, block := range importBlock.FindAllStringSubmatch(src, -1) {
		for _, m := range quotedString.FindAllStringSubmatch(block[1], -1) {
			features = append(features, "import:"+m[1])
		}
	}
	return uniqueSorted(features)
}

func indexRunes(runes []rune, from int, needle string) int {
	n := []rune(needle)
	for i := from; i+len(n) <= len(runes); i++ {
		match := true
		for j := range n {
			if runes[i+j] != n[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// skipLine returns the index just before the next newline so the caller's
// loop increment lands on it and the newline itself is kept.
func skipLine(runes []rune, i int) int {
	for i+1 < len(runes) && runes[i+1] != '\n' {
		i++
	}
	return i
}

func atWordBoundary(runes []rune, i int) bool {
	if i == 0 {
		return true
	}
	prev := runes[i-1]
	return prev == ' ' || prev == '\t' || prev == '\n' || prev == '\r'
}

func isDirective(rest []rune) bool {
	if len(rest) > 8 {
		rest = rest[:8]
	}
	word := string(rest)
	for _, d := range preprocessorDirectives {
		if strings.HasPrefix(word, d) {
			return true
		}
	}
	return false
}
