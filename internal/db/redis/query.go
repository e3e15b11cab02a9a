package redis

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/kailas-cloud/soundsearch/internal/db"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/filter"
)

// renderMatch builds the FT query string for free text, filter and id restriction.
func renderMatch(m *db.Match) (string, error) {
	if m.Index == nil {
		return "", errors.New("index is required")
	}

	var parts []string
	if text := renderText(m.Text); text != "" {
		parts = append(parts, text)
	}

	f, err := renderFilter(m.Index, m.Filter)
	if err != nil {
		return "", err
	}
	if f != "" {
		parts = append(parts, f)
	}

	if m.Restricted {
		ids, err := renderIDs(m.Index.IDField, m.IDs)
		if err != nil {
			return "", err
		}
		parts = append(parts, ids)
	}

	if len(parts) == 0 {
		return "*", nil
	}
	return strings.Join(parts, " "), nil
}

// renderText turns free text into an intersection of plain tokens.
func renderText(text string) string {
	return strings.Join(tokenize(text), " ")
}

func renderIDs(field string, ids []int64) (string, error) {
	if field == "" {
		return "", errors.New("index has no id field")
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		v := strconv.FormatInt(id, 10)
		parts[i] = fmt.Sprintf("@%s:[%s %s]", field, v, v)
	}
	return "(" + strings.Join(parts, " | ") + ")", nil
}

// renderFilter translates filter.Expression into FT query syntax using the index schema.
func renderFilter(idx *db.IndexDefinition, expr filter.Expression) (string, error) {
	if expr.IsEmpty() {
		return "", nil
	}

	var parts []string

	for _, cond := range expr.Must() {
		s, err := renderCondition(idx, cond)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}

	for _, group := range expr.AnyOf() {
		alts := make([]string, 0, len(group))
		for _, cond := range group {
			s, err := renderCondition(idx, cond)
			if err != nil {
				return "", err
			}
			alts = append(alts, s)
		}
		if len(alts) > 0 {
			parts = append(parts, "("+strings.Join(alts, " | ")+")")
		}
	}

	for _, cond := range expr.MustNot() {
		s, err := renderCondition(idx, cond)
		if err != nil {
			return "", err
		}
		parts = append(parts, "-"+s)
	}

	return strings.Join(parts, " "), nil
}

func renderCondition(idx *db.IndexDefinition, cond filter.Condition) (string, error) {
	field, ok := idx.Field(cond.Key())
	if !ok {
		return "", fmt.Errorf("%w: unknown field %q", db.ErrSyntax, cond.Key())
	}

	switch cond.Kind() {
	case filter.KindExists:
		if field.Type == db.IndexFieldNumeric {
			return fmt.Sprintf("@%s:[-inf +inf]", field.Name), nil
		}
		if !field.IndexMissing {
			return "", fmt.Errorf("%w: field %q does not support existence checks", db.ErrSyntax, field.Name)
		}
		return fmt.Sprintf("-ismissing(@%s)", field.Name), nil

	case filter.KindRange:
		if field.Type != db.IndexFieldNumeric {
			return "", fmt.Errorf("%w: range on non-numeric field %q", db.ErrSyntax, field.Name)
		}
		return renderRange(field.Name, *cond.Range()), nil

	case filter.KindTerm, filter.KindPhrase:
		return renderValue(field, cond)

	default:
		return "", fmt.Errorf("%w: unsupported condition on %q", db.ErrSyntax, field.Name)
	}
}

func renderValue(field db.IndexField, cond filter.Condition) (string, error) {
	switch field.Type {
	case db.IndexFieldTag:
		return fmt.Sprintf("@%s:{%s}", field.Name, tagEscaper.Replace(cond.Value())), nil

	case db.IndexFieldNumeric:
		v, err := strconv.ParseFloat(strings.TrimSpace(cond.Value()), 64)
		if err != nil {
			return "", fmt.Errorf("%w: %q is not a number for field %q", db.ErrSyntax, cond.Value(), field.Name)
		}
		n := formatNumber(v)
		return fmt.Sprintf("@%s:[%s %s]", field.Name, n, n), nil

	case db.IndexFieldText:
		text := renderText(cond.Value())
		if text == "" {
			return "", fmt.Errorf("%w: empty value for field %q", db.ErrSyntax, field.Name)
		}
		if cond.Kind() == filter.KindPhrase {
			return fmt.Sprintf(`@%s:"%s"`, field.Name, text), nil
		}
		return fmt.Sprintf("@%s:(%s)", field.Name, text), nil

	default:
		return "", fmt.Errorf("%w: unsupported field type for %q", db.ErrSyntax, field.Name)
	}
}

func renderRange(key string, r filter.Range) string {
	minBound := "-inf"
	maxBound := "+inf"

	if r.GT() != nil {
		minBound = "(" + formatNumber(*r.GT())
	} else if r.GTE() != nil {
		minBound = formatNumber(*r.GTE())
	}

	if r.LT() != nil {
		maxBound = "(" + formatNumber(*r.LT())
	} else if r.LTE() != nil {
		maxBound = formatNumber(*r.LTE())
	}

	return fmt.Sprintf("@%s:[%s %s]", key, minBound, maxBound)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// --- Escaping ---

var tagEscaper = strings.NewReplacer(
	"\\", "\\\\",
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	"/", "\\/",
	"[", "\\[",
	"]", "\\]",
	" ", "\\ ",
)

// tokenSeparators are the default FT tokenizer separators.
const tokenSeparators = ",.<>{}[]\"':;!@#$%^&*()-+=~/\\|?`"

// tokenize splits text the way the index tokenizer does, dropping query operators.
func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(tokenSeparators, r)
	})
}
