// Package sqlscan extracts table references from SQL text without a full parse.
//
// It is deliberately tolerant: malformed SQL never produces an error, it
// simply yields whatever table references could be recognised. Callers use
// the result for hints (dependency inference, "did you mean" suggestions),
// never for correctness decisions.
package sqlscan

import "strings"

// keywords are words that terminate a table reference or alias, and that
// never name a function when followed by "(".
var keywords = map[string]struct{}{
	"all": {}, "and": {}, "anti": {}, "as": {}, "asof": {}, "between": {}, "by": {},
	"case": {}, "cross": {}, "distinct": {}, "else": {}, "end": {}, "except": {},
	"exists": {}, "fetch": {}, "from": {}, "full": {}, "group": {}, "having": {},
	"if": {}, "ilike": {}, "in": {}, "inner": {}, "intersect": {}, "into": {},
	"is": {}, "join": {}, "lateral": {}, "left": {}, "like": {}, "limit": {},
	"natural": {}, "not": {}, "null": {}, "offset": {}, "on": {}, "only": {},
	"or": {}, "order": {}, "outer": {}, "over": {}, "partition": {}, "pivot": {},
	"positional": {}, "qualify": {}, "recursive": {}, "returning": {}, "right": {},
	"sample": {}, "select": {}, "semi": {}, "set": {}, "table": {}, "then": {},
	"union": {}, "unpivot": {}, "using": {}, "values": {}, "when": {}, "where": {},
	"window": {}, "with": {},
}

// IsKeyword reports whether word is treated as a reserved SQL keyword.
func IsKeyword(word string) bool {
	_, ok := keywords[strings.ToLower(word)]
	return ok
}

// TableRef is a table reference found in a query.
type TableRef struct {
	// Parts holds each dotted component: catalog, schema, name.
	Parts []string
	Pos   Position
}

// Name returns the unqualified table name.
func (r TableRef) Name() string {
	return r.Parts[len(r.Parts)-1]
}

// Qualified returns the dotted name as written (without quotes).
func (r TableRef) Qualified() string {
	return strings.Join(r.Parts, ".")
}

// ExtractTables returns the unqualified names of every table referenced by
// sql, in order of first appearance, without duplicates. References to CTEs
// defined in the same query are included, mirroring how a parser reports
// table nodes.
func ExtractTables(sql string) []string {
	refs := ExtractTableRefs(sql)
	seen := make(map[string]struct{}, len(refs))
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		name := ref.Name()
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// ExtractTableRefs returns every table reference in sql in order of
// appearance, including duplicates.
func ExtractTableRefs(sql string) []TableRef {
	s := &scanner{tokens: Tokenize(sql), inFrom: []bool{false}}
	return s.scan()
}

type scanner struct {
	tokens []Token
	pos    int
	// parens records, per open paren, whether it opened a function call.
	parens []bool
	// inFrom records, per paren depth, whether a FROM clause is open.
	inFrom []bool
	refs   []TableRef
}

// clauseEnds are the words that close a FROM clause at their depth.
var clauseEnds = []string{
	"where", "group", "having", "order", "limit", "offset", "fetch", "qualify",
	"window", "union", "intersect", "except", "returning", "select", "set",
	"values", "insert", "delete",
}

func (s *scanner) peek(offset int) Token {
	if i := s.pos + offset; i < len(s.tokens) {
		return s.tokens[i]
	}
	return s.tokens[len(s.tokens)-1]
}

func (s *scanner) inFunctionCall() bool {
	return len(s.parens) > 0 && s.parens[len(s.parens)-1]
}

func (s *scanner) setFrom(open bool) {
	s.inFrom[len(s.inFrom)-1] = open
}

func (s *scanner) fromOpen() bool {
	return s.inFrom[len(s.inFrom)-1]
}

func (s *scanner) endsClause(tok Token) bool {
	if tok.Type == Semicolon {
		return true
	}
	for _, w := range clauseEnds {
		if tok.Is(w) {
			return true
		}
	}
	return false
}

func (s *scanner) scan() []TableRef {
	for s.pos < len(s.tokens) {
		tok := s.tokens[s.pos]
		switch {
		case tok.Type == EOF:
			return s.refs
		case tok.Type == LParen:
			s.parens = append(s.parens, s.pos > 0 && isFunctionName(s.tokens[s.pos-1]))
			s.inFrom = append(s.inFrom, false)
			s.pos++
		case tok.Type == RParen:
			if len(s.parens) > 0 {
				s.parens = s.parens[:len(s.parens)-1]
				s.inFrom = s.inFrom[:len(s.inFrom)-1]
			}
			s.pos++
		case tok.Type == Comma && s.fromOpen():
			// a comma after a JOIN condition lists another FROM item
			s.pos++
			s.fromList()
		case s.endsClause(tok):
			s.setFrom(false)
			s.pos++
		case tok.Is("from") && !s.inFunctionCall():
			s.setFrom(true)
			s.pos++
			s.fromList()
		case tok.Is("join"):
			s.pos++
			s.tableRef(false)
		case tok.Is("into"), tok.Is("update"):
			s.setFrom(false)
			s.pos++
			s.tableRef(true)
		case tok.Is("table"):
			s.pos++
			s.skipWords("if", "not", "exists")
			s.tableRef(true)
		default:
			s.pos++
		}
	}
	return s.refs
}

// fromList reads "a [AS x], b, c" after FROM. Subqueries are left in the
// token stream so the main loop scans their contents.
func (s *scanner) fromList() {
	for {
		if !s.tableRef(false) {
			return
		}
		s.skipAlias()
		if s.peek(0).Type != Comma || s.peek(1).Type == LParen {
			return
		}
		s.pos++
	}
}

// tableRef reads a possibly-qualified table name at the current position.
// A name followed by "(" is a table function and is skipped unless
// parenOK (INSERT INTO t (cols)).
func (s *scanner) tableRef(parenOK bool) bool {
	s.skipWords("lateral", "only")

	start := s.peek(0)
	if !isNamePart(start) {
		return false
	}

	parts := []string{start.Literal}
	s.pos++
	for s.peek(0).Type == Dot && isNamePart(s.peek(1)) {
		parts = append(parts, s.peek(1).Literal)
		s.pos += 2
	}

	if s.peek(0).Type == LParen && !parenOK {
		return false
	}

	s.refs = append(s.refs, TableRef{Parts: parts, Pos: start.Pos})
	return true
}

func (s *scanner) skipAlias() {
	if s.peek(0).Is("as") {
		s.pos++
	}
	if tok := s.peek(0); tok.Type == QuotedIdent || (tok.Type == Ident && !IsKeyword(tok.Literal)) {
		s.pos++
	}
}

func (s *scanner) skipWords(words ...string) {
	for _, w := range words {
		if s.peek(0).Is(w) {
			s.pos++
		}
	}
}

func isNamePart(tok Token) bool {
	return tok.Type == QuotedIdent || (tok.Type == Ident && !IsKeyword(tok.Literal))
}

func isFunctionName(tok Token) bool {
	return tok.Type == Ident && !IsKeyword(tok.Literal)
}
