package source

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind classifies a raw cell value.
type Kind int

const (
	KindEmpty Kind = iota
	KindString
	KindNumber
	KindDate
	KindError
	KindPlaceholder
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindError:
		return "error"
	case KindPlaceholder:
		return "placeholder"
	default:
		return "unknown"
	}
}

// Cell is one grid value. Text always holds the trimmed textual form; Number
// and Time are set for KindNumber and KindDate.
type Cell struct {
	Kind   Kind
	Text   string
	Number float64
	Time   time.Time
}

// Empty is the zero cell.
var Empty = Cell{}

// IsBlank reports whether the cell carries no usable value.
func (c Cell) IsBlank() bool {
	return c.Kind == KindEmpty
}

// Tokens are the sentinel strings a source uses for broken formulas and
// not-yet-decided values.
type Tokens struct {
	Error       string
	Placeholder string
}

// DefaultTokens match what the club spreadsheet emits.
var DefaultTokens = Tokens{Error: "#ERROR!", Placeholder: "TBD"}

// spreadsheet error literals treated like the configured error token.
var errorLiterals = map[string]bool{
	"#REF!":   true,
	"#VALUE!": true,
	"#N/A":    true,
	"#NAME?":  true,
	"#DIV/0!": true,
	"#NUM!":   true,
	"#NULL!":  true,
}

// Text classifies a string value.
func (t Tokens) Text(s string) Cell {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return Empty
	case s == t.Error || errorLiterals[strings.ToUpper(s)]:
		return Cell{Kind: KindError, Text: s}
	case t.Placeholder != "" && strings.EqualFold(s, t.Placeholder):
		return Cell{Kind: KindPlaceholder, Text: s}
	default:
		return Cell{Kind: KindString, Text: s}
	}
}

// Classify converts a decoded value (from a JSON or YAML payload) into a Cell.
func (t Tokens) Classify(v any) Cell {
	switch x := v.(type) {
	case nil:
		return Empty
	case string:
		return t.Text(x)
	case float64:
		return numberCell(x)
	case float32:
		return numberCell(float64(x))
	case int:
		return numberCell(float64(x))
	case int64:
		return numberCell(float64(x))
	case uint64:
		return numberCell(float64(x))
	case bool:
		return Cell{Kind: KindString, Text: strings.ToUpper(strconv.FormatBool(x))}
	case time.Time:
		return Cell{Kind: KindDate, Text: x.Format("2006-01-02 15:04:05"), Time: x}
	case Cell:
		return x
	default:
		return t.Text(fmt.Sprint(x))
	}
}

func numberCell(f float64) Cell {
	return Cell{Kind: KindNumber, Text: strconv.FormatFloat(f, 'f', -1, 64), Number: f}
}
