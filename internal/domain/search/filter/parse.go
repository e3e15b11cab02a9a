package filter

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// MaxFilterLength is the maximum accepted length of a raw filter string.
const MaxFilterLength = 4096

// SyntaxError describes where a filter string stopped making sense.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("filter syntax error at offset %d: %s", e.Offset, e.Msg)
}

// Parse reads a filter string made of field:value clauses.
//
//	type:wav                     term
//	pack:"Field Recordings"      phrase
//	duration:[0 TO 5]            inclusive range, {..} exclusive, * open
//	created:[2010-01-01 TO *]    dates become unix seconds
//	tag:(dog OR cat)             alternatives on one field
//	samplerate:*                 field present
//
// Clauses are ANDed unless joined with OR; a leading '-' negates a clause.
func Parse(s string) (Expression, error) {
	if len(s) > MaxFilterLength {
		return Expression{}, &SyntaxError{Offset: MaxFilterLength, Msg: "filter too long"}
	}

	p := &parser{src: []rune(s)}

	var must, mustNot []Condition
	var anyOf [][]Condition

	for {
		p.skipSpace()
		if p.eof() {
			break
		}
		if p.consumeWord("AND", "&&") {
			continue
		}

		group, negated, err := p.parseGroup()
		if err != nil {
			return Expression{}, err
		}

		switch {
		case negated:
			mustNot = append(mustNot, group...)
		case len(group) == 1:
			must = append(must, group[0])
		default:
			anyOf = append(anyOf, group)
		}
	}

	expr, err := NewExpression(must, anyOf, mustNot)
	if err != nil {
		return Expression{}, &SyntaxError{Offset: len(p.src), Msg: err.Error()}
	}
	return expr, nil
}

type parser struct {
	src []rune
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() rune {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) skipSpace() {
	for !p.eof() && unicode.IsSpace(p.src[p.pos]) {
		p.pos++
	}
}

// consumeWord consumes one of the given operator words when it stands alone.
func (p *parser) consumeWord(words ...string) bool {
	for _, w := range words {
		end := p.pos + len([]rune(w))
		if end > len(p.src) {
			continue
		}
		if string(p.src[p.pos:end]) != w {
			continue
		}
		if end < len(p.src) && !unicode.IsSpace(p.src[end]) {
			continue
		}
		p.pos = end
		return true
	}
	return false
}

// parseGroup parses clauses joined by OR.
func (p *parser) parseGroup() ([]Condition, bool, error) {
	conds, negated, err := p.parseClause()
	if err != nil {
		return nil, false, err
	}
	clauses := 1

	for {
		save := p.pos
		p.skipSpace()
		if !p.consumeWord("OR", "||") {
			p.pos = save
			break
		}
		p.skipSpace()
		more, neg, err := p.parseClause()
		if err != nil {
			return nil, false, err
		}
		if neg || negated {
			return nil, false, p.errorf("negated clause inside OR group")
		}
		conds = append(conds, more...)
		clauses++
	}

	if negated && clauses > 1 {
		return nil, false, p.errorf("negated clause inside OR group")
	}
	return conds, negated, nil
}

func (p *parser) parseClause() ([]Condition, bool, error) {
	negated := false
	switch p.peek() {
	case '-':
		negated = true
		p.pos++
	case '+':
		p.pos++
	}

	keyStart := p.pos
	for !p.eof() && isFieldRune(p.peek()) {
		p.pos++
	}
	key := string(p.src[keyStart:p.pos])
	if key == "" {
		return nil, false, p.errorf("expected field name")
	}
	if p.peek() != ':' {
		return nil, false, p.errorf("expected ':' after field %q", key)
	}
	p.pos++
	if p.eof() || unicode.IsSpace(p.peek()) {
		return nil, false, p.errorf("missing value for field %q", key)
	}

	var (
		conds []Condition
		err   error
	)
	switch p.peek() {
	case '"':
		var c Condition
		c, err = p.parsePhrase(key)
		conds = []Condition{c}
	case '[', '{':
		var c Condition
		c, err = p.parseRange(key)
		conds = []Condition{c}
	case '(':
		conds, err = p.parseList(key)
	default:
		var c Condition
		c, err = p.parseTerm(key)
		conds = []Condition{c}
	}
	if err != nil {
		return nil, false, err
	}
	return conds, negated, nil
}

var phraseEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Phrase renders key:"value", escaping the value so that Parse reads it back unchanged.
func Phrase(key, value string) string {
	return key + `:"` + phraseEscaper.Replace(value) + `"`
}

func (p *parser) parsePhrase(key string) (Condition, error) {
	p.pos++ // opening quote
	var b strings.Builder
	for {
		if p.eof() {
			return Condition{}, p.errorf("unterminated phrase for field %q", key)
		}
		r := p.src[p.pos]
		p.pos++
		if r == '\\' && !p.eof() {
			b.WriteRune(p.src[p.pos])
			p.pos++
			continue
		}
		if r == '"' {
			break
		}
		b.WriteRune(r)
	}
	c, err := NewPhrase(key, b.String())
	if err != nil {
		return Condition{}, p.errorf("%s", err.Error())
	}
	return c, nil
}

func (p *parser) parseRange(key string) (Condition, error) {
	open := p.src[p.pos]
	p.pos++
	start := p.pos
	for !p.eof() && p.peek() != ']' && p.peek() != '}' {
		p.pos++
	}
	if p.eof() {
		return Condition{}, p.errorf("unterminated range for field %q", key)
	}
	closing := p.src[p.pos]
	body := string(p.src[start:p.pos])
	p.pos++

	parts := strings.Fields(body)
	if len(parts) != 3 || !strings.EqualFold(parts[1], "TO") {
		return Condition{}, p.errorf("range for field %q must look like [from TO to]", key)
	}

	lo, err := parseBound(parts[0])
	if err != nil {
		return Condition{}, p.errorf("field %q: %s", key, err.Error())
	}
	hi, err := parseBound(parts[2])
	if err != nil {
		return Condition{}, p.errorf("field %q: %s", key, err.Error())
	}

	var gt, gte, lt, lte *float64
	if open == '[' {
		gte = lo
	} else {
		gt = lo
	}
	if closing == ']' {
		lte = hi
	} else {
		lt = hi
	}

	r, err := NewRangeFilter(gt, gte, lt, lte)
	if err != nil {
		return Condition{}, p.errorf("%s", err.Error())
	}
	return NewRange(key, r)
}

// parseList reads (a OR b "c d") into alternatives; quoted items stay whole phrases.
func (p *parser) parseList(key string) ([]Condition, error) {
	p.pos++ // opening paren
	var conds []Condition
	for {
		p.skipSpace()
		if p.eof() {
			return nil, p.errorf("unterminated list for field %q", key)
		}
		if p.peek() == ')' {
			p.pos++
			break
		}
		if p.consumeListWord("OR", "||") {
			continue
		}
		if p.peek() == '"' {
			c, err := p.parsePhrase(key)
			if err != nil {
				return nil, err
			}
			conds = append(conds, c)
			continue
		}

		var b strings.Builder
		for !p.eof() && !unicode.IsSpace(p.peek()) && p.peek() != ')' {
			r := p.src[p.pos]
			p.pos++
			if r == '\\' && !p.eof() {
				b.WriteRune(p.src[p.pos])
				p.pos++
				continue
			}
			if r == '"' || r == '(' || r == '[' || r == ']' {
				return nil, p.errorf("unexpected %q in list for field %q", r, key)
			}
			b.WriteRune(r)
		}
		c, err := NewMatch(key, b.String())
		if err != nil {
			return nil, p.errorf("%s", err.Error())
		}
		conds = append(conds, c)
	}
	if len(conds) == 0 {
		return nil, p.errorf("empty list for field %q", key)
	}
	return conds, nil
}

// consumeListWord is consumeWord that also accepts a closing paren after the word.
func (p *parser) consumeListWord(words ...string) bool {
	for _, w := range words {
		end := p.pos + len([]rune(w))
		if end > len(p.src) || string(p.src[p.pos:end]) != w {
			continue
		}
		if end < len(p.src) && !unicode.IsSpace(p.src[end]) && p.src[end] != ')' {
			continue
		}
		p.pos = end
		return true
	}
	return false
}

func (p *parser) parseTerm(key string) (Condition, error) {
	var b strings.Builder
	for !p.eof() && !unicode.IsSpace(p.peek()) {
		r := p.src[p.pos]
		p.pos++
		if r == '\\' && !p.eof() {
			b.WriteRune(p.src[p.pos])
			p.pos++
			continue
		}
		if r == '"' || r == '(' || r == ')' || r == '[' || r == ']' {
			return Condition{}, p.errorf("unexpected %q in value for field %q", r, key)
		}
		b.WriteRune(r)
	}
	value := b.String()
	if value == "*" {
		return NewExists(key)
	}
	return NewMatch(key, value)
}

func isFieldRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// parseBound reads a range bound: "*", a number, or an RFC 3339 / YYYY-MM-DD date.
func parseBound(s string) (*float64, error) {
	if s == "*" {
		return nil, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return &f, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			f := float64(t.Unix())
			return &f, nil
		}
	}
	return nil, fmt.Errorf("invalid range bound %q", s)
}
