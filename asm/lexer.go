// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// Token kinds produced by the lexer.
type tokenKind int

const (
	TOKEN_NUMBER = tokenKind(iota)
	TOKEN_IDENT
	TOKEN_PUNCT
	TOKEN_EXPR
)

// asmLexer tokenizes one source line. Numbers carry their sign, so
// '[r10-8]' lexes as '[', 'r10', '-8', ']'.
var asmLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "Expr", Pattern: `\$\((?:[^()]|\([^()]*\))*\)`},
	{Name: "Number", Pattern: `[-+]?(?:0[xX][0-9a-fA-F]+|[0-9]+)`},
	{Name: "Ident", Pattern: `%?[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Punct", Pattern: `[\[\]#,:*()&+\-/]`},
	{Name: "Whitespace", Pattern: `[ \t\r]+`},
})

var tokenKinds = func() map[lexer.TokenType]tokenKind {
	symbols := asmLexer.Symbols()
	return map[lexer.TokenType]tokenKind{
		symbols["Number"]: TOKEN_NUMBER,
		symbols["Ident"]:  TOKEN_IDENT,
		symbols["Punct"]:  TOKEN_PUNCT,
		symbols["Expr"]:   TOKEN_EXPR,
	}
}()

// token is one lexed word of a line.
type token struct {
	Kind  tokenKind
	Value string
}

// lexLine splits a line into tokens, dropping whitespace and comments.
func lexLine(line string) (tokens []token, err error) {
	lex, err := asmLexer.LexString("", line)
	if err != nil {
		return
	}

	all, err := lexer.ConsumeAll(lex)
	if err != nil {
		return
	}

	for _, tok := range all {
		kind, ok := tokenKinds[tok.Type]
		if !ok {
			// Whitespace, comment or end of line.
			continue
		}
		if kind == TOKEN_PUNCT && tok.Value == "/" {
			err = ErrCommentStart
			tokens = nil
			return
		}
		tokens = append(tokens, token{Kind: kind, Value: tok.Value})
	}

	return
}
