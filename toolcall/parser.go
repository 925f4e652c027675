package toolcall

import "strings"

const (
	OpenTag  = "<tool_call>"
	CloseTag = "</tool_call>"
)

// signature is the fixed positional argument list of one function.
type signature struct {
	params []string
	build  func(args []string) Call
}

// Adding a function means adding a rule here and a variant in call.go.
var signatures = map[Function]signature{
	FuncGetFact: {
		params: []string{"key"},
		build:  func(a []string) Call { return GetFact{Key: a[0]} },
	},
	FuncSetFact: {
		params: []string{"key", "value"},
		build:  func(a []string) Call { return SetFact{Key: a[0], Value: a[1]} },
	},
	FuncSearchDocs: {
		params: []string{"query"},
		build:  func(a []string) Call { return SearchDocs{Query: a[0]} },
	},
}

// Known reports whether name has a signature rule.
func Known(name string) bool {
	_, ok := signatures[Function(name)]
	return ok
}

// Parse returns the well-formed calls in text, left to right.
// Malformed or unknown blocks are skipped without error.
func Parse(text string) []Call {
	var calls []Call
	for _, c := range Scan(text) {
		if _, bad := c.(Unrecognized); bad {
			continue
		}
		calls = append(calls, c)
	}
	return calls
}

// Scan returns one Call per closed tagged block, including Unrecognized ones.
// An opening tag without a closing tag ends the scan.
func Scan(text string) []Call {
	var calls []Call
	rest := text
	for {
		start := strings.Index(rest, OpenTag)
		if start < 0 {
			break
		}
		rest = rest[start+len(OpenTag):]
		end := strings.Index(rest, CloseTag)
		if end < 0 {
			break
		}
		body := rest[:end]
		rest = rest[end+len(CloseTag):]
		calls = append(calls, parseBody(body))
	}
	return calls
}

func parseBody(raw string) Call {
	body := strings.TrimSpace(raw)
	if strings.Contains(body, OpenTag) {
		return Unrecognized{Body: raw, Reason: "nested tool_call tag"}
	}

	open := strings.IndexByte(body, '(')
	if open <= 0 {
		return Unrecognized{Body: raw, Reason: "missing argument list"}
	}
	name := strings.TrimSpace(body[:open])
	if !isIdentifier(name) {
		return Unrecognized{Body: raw, Reason: "invalid function name"}
	}

	sig, ok := signatures[Function(name)]
	if !ok {
		return Unrecognized{Name: name, Body: raw, Reason: "unknown function " + name}
	}

	args, reason := parseArgs(body[open+1:])
	if reason != "" {
		return Unrecognized{Name: name, Body: raw, Reason: reason}
	}
	if len(args) != len(sig.params) {
		return Unrecognized{Name: name, Body: raw, Reason: "wrong number of arguments for " + name}
	}
	return sig.build(args)
}

// parseArgs reads quoted literals separated by commas up to the closing
// parenthesis, which must end the body apart from an optional semicolon.
func parseArgs(s string) ([]string, string) {
	var args []string
	i := skipSpace(s, 0)
	if i < len(s) && s[i] == ')' {
		if !endsCall(s, i+1) {
			return nil, "trailing text after call"
		}
		return args, ""
	}

	for {
		i = skipSpace(s, i)
		if i >= len(s) {
			return nil, "unterminated argument list"
		}
		quote := s[i]
		if quote != '"' && quote != '\'' {
			return nil, "argument is not a quoted string"
		}
		closing := literalEnd(s, i+1, quote)
		if closing < 0 {
			return nil, "unterminated string literal"
		}
		lit := s[i+1 : closing]
		if lit == "" {
			return nil, "empty string argument"
		}
		args = append(args, lit)
		i = skipSpace(s, closing+1)
		if i >= len(s) {
			return nil, "unterminated argument list"
		}
		switch s[i] {
		case ',':
			i++
		case ')':
			if !endsCall(s, i+1) {
				return nil, "trailing text after call"
			}
			return args, ""
		default:
			return nil, "expected ',' or ')'"
		}
	}
}

// literalEnd returns the index of the quote closing a literal that starts at
// from. A quote only closes the literal when a comma or the closing
// parenthesis follows it, so 'it's' reads as it's. Returns -1 if none does.
func literalEnd(s string, from int, quote byte) int {
	for j := from; j < len(s); j++ {
		if s[j] != quote {
			continue
		}
		if n := skipSpace(s, j+1); n < len(s) && (s[n] == ',' || s[n] == ')') {
			return j
		}
	}
	return -1
}

// endsCall reports whether only whitespace and at most one semicolon remain.
func endsCall(s string, i int) bool {
	i = skipSpace(s, i)
	if i < len(s) && s[i] == ';' {
		i = skipSpace(s, i+1)
	}
	return i == len(s)
}

func skipSpace(s string, i int) int {
	for i < len(s) && strings.IndexByte(" \t\n\r", s[i]) >= 0 {
		i++
	}
	return i
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
