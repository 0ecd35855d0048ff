package content

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	json "github.com/goccy/go-json"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/BaSui01/generable/types"
)

// DefaultMaxDepth bounds container nesting when Options.MaxDepth is zero.
const DefaultMaxDepth = 512

// Options tunes ParseWithOptions.
type Options struct {
	// MaxDepth bounds container nesting. Deeper content is treated as if the
	// text ended there.
	MaxDepth int
}

// ParseError reports text that cannot yield even a partial value.
type ParseError struct {
	Offset int
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse content at offset %d: %s", e.Offset, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error { return e.Cause }

// Code returns types.ErrParse.
func (e *ParseError) Code() types.ErrorCode { return types.ErrParse }

// Parse parses JSON-shaped text that may have been cut off at any byte. It
// only fails when the text holds no value at all.
func Parse(text []byte) (Value, error) {
	return ParseWithOptions(text, Options{})
}

// ParseString is Parse for string input.
func ParseString(text string) (Value, error) {
	return ParseWithOptions([]byte(text), Options{})
}

// ParseWithOptions is Parse with explicit options.
func ParseWithOptions(text []byte, opts Options) (Value, error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}

	data, cutRune := trimPartialRune(text)
	if !utf8.Valid(data) {
		return Value{}, &ParseError{Offset: invalidUTF8Offset(data), Reason: "invalid UTF-8"}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Value{}, &ParseError{Offset: 0, Reason: "empty input"}
	}

	if !cutRune && json.Valid(data) {
		if v, err := parseStrict(data, opts.MaxDepth); err == nil {
			return v, nil
		}
	}
	return parsePartial(data, opts.MaxDepth)
}

// trimPartialRune drops an incomplete multi-byte sequence at the very end of
// text, which is what a byte-boundary cut inside a character looks like.
func trimPartialRune(text []byte) ([]byte, bool) {
	n := len(text)
	for i := n - 1; i >= 0 && i >= n-utf8.UTFMax; i-- {
		c := text[i]
		if c < utf8.RuneSelf {
			return text, false
		}
		if utf8.RuneStart(c) {
			if !utf8.FullRune(text[i:]) {
				return text[:i], true
			}
			return text, false
		}
	}
	return text, false
}

func invalidUTF8Offset(data []byte) int {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(data)
}

// ---- strict pass ----

var errTooDeep = errors.New("nesting exceeds max depth")

func parseStrict(data []byte, maxDepth int) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	v, err := strictValue(dec, tok, 0, maxDepth)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, fmt.Errorf("trailing data after value")
	}
	return v, nil
}

func strictValue(dec *json.Decoder, tok any, depth, maxDepth int) (Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		if depth >= maxDepth {
			return Value{}, errTooDeep
		}
		switch t {
		case '{':
			props := orderedmap.New[string, Value]()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := kt.(string)
				if !ok {
					return Value{}, fmt.Errorf("unexpected object key %v", kt)
				}
				vt, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				v, err := strictValue(dec, vt, depth+1, maxDepth)
				if err != nil {
					return Value{}, err
				}
				props.Set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Value{kind: KindStructure, props: props}, nil
		case '[':
			elems := make([]Value, 0)
			for dec.More() {
				et, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				v, err := strictValue(dec, et, depth+1, maxDepth)
				if err != nil {
					return Value{}, err
				}
				elems = append(elems, v)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Value{kind: KindArray, elems: elems}, nil
		default:
			return Value{}, fmt.Errorf("unexpected delimiter %q", rune(t))
		}
	case string:
		return String(t), nil
	case json.Number:
		f, err := strconv.ParseFloat(string(t), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return Value{}, err
		}
		return Number(f), nil
	case float64:
		return Number(t), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null(), nil
	default:
		return Value{}, fmt.Errorf("unexpected token %T", tok)
	}
}

// ---- fallback pass ----

type scanState uint8

const (
	// stateDone: the value was closed.
	stateDone scanState = iota
	// stateCut: a container ended early; the value holds what it retained.
	stateCut
	// stateNone: nothing usable (dangling scalar or malformed text).
	stateNone
)

type scanner struct {
	data     []byte
	pos      int
	depth    int
	maxDepth int
}

func parsePartial(data []byte, maxDepth int) (Value, error) {
	s := &scanner{data: data, maxDepth: maxDepth}
	s.skipSpace()
	start := s.pos
	c := data[start]

	switch {
	case c == '{' || c == '[':
		v, _ := s.value()
		return v, nil
	case c == '"':
		if str, ok := s.str(); ok {
			return String(str), nil
		}
		return Value{kind: KindString, s: partialString(data[start:]), truncated: true}, nil
	case c == '-' || isDigit(c) || c == 't' || c == 'f' || c == 'n':
		if v, st := s.value(); st == stateDone {
			return v, nil
		}
		return Value{truncated: true}, nil
	default:
		return Value{}, &ParseError{Offset: start, Reason: fmt.Sprintf("unexpected character %q", c)}
	}
}

func (s *scanner) eof() bool { return s.pos >= len(s.data) }

func (s *scanner) skipSpace() {
	for s.pos < len(s.data) {
		switch s.data[s.pos] {
		case ' ', '\t', '\n', '\r':
			s.pos++
		default:
			return
		}
	}
}

func (s *scanner) value() (Value, scanState) {
	s.skipSpace()
	if s.eof() {
		return Value{}, stateNone
	}
	switch c := s.data[s.pos]; {
	case c == '{':
		return s.object()
	case c == '[':
		return s.array()
	case c == '"':
		str, ok := s.str()
		if !ok {
			return Value{}, stateNone
		}
		return String(str), stateDone
	case c == '-' || isDigit(c):
		return s.number()
	case c == 't':
		return s.literal("true", Bool(true))
	case c == 'f':
		return s.literal("false", Bool(false))
	case c == 'n':
		return s.literal("null", Null())
	default:
		return Value{}, stateNone
	}
}

func (s *scanner) object() (Value, scanState) {
	props := orderedmap.New[string, Value]()
	cut := func() (Value, scanState) {
		return Value{kind: KindStructure, props: props, truncated: true}, stateCut
	}
	if s.depth >= s.maxDepth {
		s.pos = len(s.data)
		return cut()
	}
	s.depth++
	defer func() { s.depth-- }()

	s.pos++ // '{'
	s.skipSpace()
	if s.eof() {
		return cut()
	}
	if s.data[s.pos] == '}' {
		s.pos++
		return Value{kind: KindStructure, props: props}, stateDone
	}

	for {
		s.skipSpace()
		if s.eof() || s.data[s.pos] != '"' {
			return cut()
		}
		key, ok := s.str()
		if !ok {
			return cut()
		}
		s.skipSpace()
		if s.eof() || s.data[s.pos] != ':' {
			return cut()
		}
		s.pos++

		v, st := s.value()
		switch st {
		case stateNone:
			return cut()
		case stateCut:
			props.Set(key, v)
			return cut()
		}
		props.Set(key, v)

		s.skipSpace()
		if s.eof() {
			return cut()
		}
		switch s.data[s.pos] {
		case ',':
			s.pos++
		case '}':
			s.pos++
			return Value{kind: KindStructure, props: props}, stateDone
		default:
			return cut()
		}
	}
}

func (s *scanner) array() (Value, scanState) {
	elems := make([]Value, 0)
	cut := func() (Value, scanState) {
		return Value{kind: KindArray, elems: elems, truncated: true}, stateCut
	}
	if s.depth >= s.maxDepth {
		s.pos = len(s.data)
		return cut()
	}
	s.depth++
	defer func() { s.depth-- }()

	s.pos++ // '['
	s.skipSpace()
	if s.eof() {
		return cut()
	}
	if s.data[s.pos] == ']' {
		s.pos++
		return Value{kind: KindArray, elems: elems}, stateDone
	}

	for {
		v, st := s.value()
		switch st {
		case stateNone:
			return cut()
		case stateCut:
			elems = append(elems, v)
			return cut()
		}
		elems = append(elems, v)

		s.skipSpace()
		if s.eof() {
			return cut()
		}
		switch s.data[s.pos] {
		case ',':
			s.pos++
		case ']':
			s.pos++
			return Value{kind: KindArray, elems: elems}, stateDone
		default:
			return cut()
		}
	}
}

// str scans a string literal starting at the opening quote. It reports false
// without moving when the literal is unterminated or malformed.
func (s *scanner) str() (string, bool) {
	start := s.pos
	inEscape := false
	for i := start + 1; i < len(s.data); i++ {
		c := s.data[i]
		switch {
		case inEscape:
			inEscape = false
		case c == '\\':
			inEscape = true
		case c == '"':
			var out string
			if err := json.Unmarshal(s.data[start:i+1], &out); err != nil {
				return "", false
			}
			s.pos = i + 1
			return out, true
		}
	}
	return "", false
}

// number scans a number token. A token ended by the end of input counts as
// fully formed; one missing its fraction or exponent digits does not.
func (s *scanner) number() (Value, scanState) {
	d := s.data
	i := s.pos
	if d[i] == '-' {
		i++
	}
	switch {
	case i < len(d) && d[i] == '0':
		i++
	case i < len(d) && isDigit(d[i]):
		for i < len(d) && isDigit(d[i]) {
			i++
		}
	default:
		return Value{}, stateNone
	}
	if i < len(d) && d[i] == '.' {
		i++
		if i >= len(d) || !isDigit(d[i]) {
			return Value{}, stateNone
		}
		for i < len(d) && isDigit(d[i]) {
			i++
		}
	}
	if i < len(d) && (d[i] == 'e' || d[i] == 'E') {
		i++
		if i < len(d) && (d[i] == '+' || d[i] == '-') {
			i++
		}
		if i >= len(d) || !isDigit(d[i]) {
			return Value{}, stateNone
		}
		for i < len(d) && isDigit(d[i]) {
			i++
		}
	}

	f, err := strconv.ParseFloat(string(d[s.pos:i]), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return Value{}, stateNone
	}
	s.pos = i
	return Number(f), stateDone
}

func (s *scanner) literal(word string, v Value) (Value, scanState) {
	if !bytes.HasPrefix(s.data[s.pos:], []byte(word)) {
		return Value{}, stateNone
	}
	s.pos += len(word)
	return v, stateDone
}

// partialString decodes the retained prefix of an unterminated top-level
// string literal, dropping an escape sequence cut in half.
func partialString(raw []byte) string {
	for trim := 0; trim <= 6 && trim < len(raw); trim++ {
		candidate := make([]byte, 0, len(raw)-trim+1)
		candidate = append(candidate, raw[:len(raw)-trim]...)
		candidate = append(candidate, '"')
		var out string
		if err := json.Unmarshal(candidate, &out); err == nil {
			return out
		}
	}
	return ""
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
