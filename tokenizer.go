package modsh

import (
	"strings"
)

// Token is one atomic unit of a command line. Quoted tokens (quoted or
// bracketed spans) never participate in field name matching; they are
// always collected as values.
type Token struct {
	Text   string
	Quoted bool
}

// HelpMode flags a line that ended with the help suffix.
type HelpMode int

const (
	HelpNone HelpMode = iota
	// HelpBrief is a single trailing "?".
	HelpBrief
	// HelpVerbose is a trailing "??"; help output adds type, default and
	// required details.
	HelpVerbose
)

// SplitLine tokenizes a raw command line into pipe-delimited token lists.
//
// Single- and double-quoted spans form one token with the quotes stripped.
// "{...}" and "[...]" spans are captured as one opaque token, nesting aware,
// with the brackets kept; their content is handed to the validator
// unparsed. A "|" outside any span ends the current token list and starts
// the next one. A trailing "?" or "??" is stripped and reported as the
// line's help mode before tokenization.
func SplitLine(line string) ([][]Token, HelpMode, error) {
	help := HelpNone
	trimmed := strings.TrimRight(line, " \t")
	if strings.HasSuffix(trimmed, "??") {
		help = HelpVerbose
		trimmed = strings.TrimSuffix(trimmed, "??")
	} else if strings.HasSuffix(trimmed, "?") {
		help = HelpBrief
		trimmed = strings.TrimSuffix(trimmed, "?")
	}

	segments := [][]Token{}
	current := []Token{}
	var buf strings.Builder
	quoted := false // current token contains a quoted or bracketed span

	flush := func() {
		if buf.Len() == 0 && !quoted {
			return
		}
		current = append(current, Token{Text: buf.String(), Quoted: quoted})
		buf.Reset()
		quoted = false
	}

	runes := []rune(trimmed)
	i := 0
	for i < len(runes) {
		ch := runes[i]
		switch {
		case ch == ' ' || ch == '\t':
			flush()
			i++
		case ch == '|':
			flush()
			segments = append(segments, current)
			current = []Token{}
			i++
		case ch == '\'' || ch == '"':
			end := i + 1
			for end < len(runes) && runes[end] != ch {
				end++
			}
			if end >= len(runes) {
				return nil, help, &TokenizeError{Reason: "unterminated quote"}
			}
			buf.WriteString(string(runes[i+1 : end]))
			quoted = true
			i = end + 1
		case (ch == '{' || ch == '[') && buf.Len() == 0:
			open, closing := ch, matchingBracket(ch)
			depth := 0
			end := i
			var inQuote rune
			for end < len(runes) {
				c := runes[end]
				if inQuote != 0 {
					if c == inQuote {
						inQuote = 0
					}
				} else if c == '\'' || c == '"' {
					inQuote = c
				} else if c == open {
					depth++
				} else if c == closing {
					depth--
					if depth == 0 {
						break
					}
				}
				end++
			}
			if end >= len(runes) {
				return nil, help, &TokenizeError{Reason: "unbalanced " + string(open)}
			}
			buf.WriteString(string(runes[i : end+1]))
			quoted = true
			i = end + 1
		default:
			buf.WriteRune(ch)
			i++
		}
	}
	flush()
	segments = append(segments, current)
	return segments, help, nil
}

func matchingBracket(open rune) rune {
	if open == '{' {
		return '}'
	}
	return ']'
}
