// Package mathtext renders the inline $...$ formulas that models put in
// answers as plain Unicode for the terminal.
package mathtext

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// spanPattern matches a display $$...$$ span or a non-empty inline $...$
// span on one line. Display spans are tried first so "$$x$$" is one span.
var spanPattern = regexp.MustCompile(`\$\$([^$]+)\$\$|\$([^$\n]+)\$`)

// Placeholders use private-use runes so that word wrapping never splits them.
const (
	placeholderOpen  = '\uE000'
	placeholderClose = '\uE001'
)

var placeholderPattern = regexp.MustCompile("\uE000(\\d+)\uE001")

// Span is one formula found in a text.
type Span struct {
	Raw   string // including the dollar signs
	LaTeX string
}

// Extract replaces every $...$ span with a placeholder and returns the
// rewritten text with the spans in order.
func Extract(text string) (string, []Span) {
	var spans []Span
	out := spanPattern.ReplaceAllStringFunc(text, func(m string) string {
		inner := strings.TrimPrefix(strings.TrimSuffix(m, "$"), "$")
		if strings.HasPrefix(m, "$$") && strings.HasSuffix(m, "$$") && len(m) > 4 {
			inner = m[2 : len(m)-2]
		}
		spans = append(spans, Span{Raw: m, LaTeX: strings.TrimSpace(inner)})
		return placeholder(len(spans) - 1)
	})
	return out, spans
}

func placeholder(i int) string {
	return string(placeholderOpen) + strconv.Itoa(i) + string(placeholderClose)
}

// Fill typesets each placeholder in laid-out text. A span that fails to
// typeset is shown as its raw $...$ source. style, when non-nil, decorates
// successfully typeset spans.
func Fill(text string, spans []Span, style func(string) string) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(m string) string {
		i, err := strconv.Atoi(m[len(string(placeholderOpen)) : len(m)-len(string(placeholderClose))])
		if err != nil || i >= len(spans) {
			return m
		}
		out, err := Typeset(spans[i].LaTeX)
		if err != nil {
			return spans[i].Raw
		}
		if style != nil {
			return style(out)
		}
		return out
	})
}

// Render is Extract followed by Fill with no layout step in between.
func Render(text string) string {
	out, spans := Extract(text)
	return Fill(out, spans, nil)
}

// Typeset converts a LaTeX math subset to Unicode.
func Typeset(latex string) (string, error) {
	p := &parser{src: []rune(latex)}
	out, err := p.parseGroup(false)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

type parser struct {
	src []rune
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("mathtext: at %d: %s", p.pos, fmt.Sprintf(format, args...))
}

// parseGroup reads until the end of input or, when inBraces, the closing '}'.
func (p *parser) parseGroup(inBraces bool) (string, error) {
	var b strings.Builder
	for !p.eof() {
		r := p.src[p.pos]
		switch r {
		case '}':
			if !inBraces {
				return "", p.errorf("unbalanced '}'")
			}
			p.pos++
			return b.String(), nil
		case '{':
			p.pos++
			inner, err := p.parseGroup(true)
			if err != nil {
				return "", err
			}
			b.WriteString(inner)
		case '^', '_':
			p.pos++
			arg, err := p.parseArg()
			if err != nil {
				return "", err
			}
			table := superscripts
			if r == '_' {
				table = subscripts
			}
			s, err := mapScript(arg, table)
			if err != nil {
				return "", p.errorf("%v", err)
			}
			b.WriteString(s)
		case '\\':
			s, err := p.parseCommand()
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		default:
			p.pos++
			b.WriteRune(r)
		}
	}
	if inBraces {
		return "", p.errorf("missing '}'")
	}
	return b.String(), nil
}

// parseArg reads a single-token argument: a braced group, a command or one rune.
func (p *parser) parseArg() (string, error) {
	for !p.eof() && p.src[p.pos] == ' ' {
		p.pos++
	}
	if p.eof() {
		return "", p.errorf("missing argument")
	}
	switch r := p.src[p.pos]; r {
	case '{':
		p.pos++
		return p.parseGroup(true)
	case '\\':
		return p.parseCommand()
	case '}', '^', '_':
		return "", p.errorf("unexpected %q", r)
	default:
		p.pos++
		return string(r), nil
	}
}

func (p *parser) parseCommand() (string, error) {
	p.pos++ // backslash
	if p.eof() {
		return "", p.errorf("dangling backslash")
	}
	start := p.pos
	for !p.eof() && isLetter(p.src[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		r := p.src[p.pos]
		p.pos++
		if s, ok := escapes[r]; ok {
			return s, nil
		}
		return "", p.errorf("unknown escape \\%c", r)
	}
	name := string(p.src[start:p.pos])

	if s, ok := symbols[name]; ok {
		return s, nil
	}
	switch name {
	case "frac", "dfrac", "tfrac":
		num, err := p.parseArg()
		if err != nil {
			return "", err
		}
		den, err := p.parseArg()
		if err != nil {
			return "", err
		}
		return wrap(num) + "/" + wrap(den), nil
	case "sqrt":
		arg, err := p.parseArg()
		if err != nil {
			return "", err
		}
		if len([]rune(arg)) == 1 {
			return "√" + arg, nil
		}
		return "√(" + arg + ")", nil
	case "mathbf", "mathrm", "mathit", "mathcal", "text", "textbf", "operatorname", "boldsymbol":
		return p.parseArg()
	case "hat", "bar", "vec", "tilde", "dot":
		arg, err := p.parseArg()
		if err != nil {
			return "", err
		}
		return arg + accents[name], nil
	case "left", "right":
		if p.eof() {
			return "", p.errorf("missing delimiter after \\%s", name)
		}
		r := p.src[p.pos]
		p.pos++
		if r == '.' {
			return "", nil
		}
		if r == '\\' {
			p.pos--
			return p.parseCommand()
		}
		return string(r), nil
	}
	return "", p.errorf("unsupported command \\%s", name)
}

// wrap parenthesises multi-rune fraction operands.
func wrap(s string) string {
	if len([]rune(s)) <= 1 {
		return s
	}
	return "(" + s + ")"
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func mapScript(s string, table map[rune]rune) (string, error) {
	var b strings.Builder
	for _, r := range s {
		m, ok := table[r]
		if !ok {
			return "", fmt.Errorf("no script form for %q", r)
		}
		b.WriteRune(m)
	}
	return b.String(), nil
}
