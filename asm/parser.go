// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"math"
	"strings"

	"github.com/ezrec/ebpfvm/bpf"
)

// Dialect selects the source language of an assembly unit.
type Dialect int

const (
	DIALECT_AUTO    = Dialect(iota) // Detect from the source.
	DIALECT_EBPF                    // Extended BPF.
	DIALECT_CLASSIC                 // Classic BPF.
)

var dialectNames = map[Dialect]string{
	DIALECT_AUTO:    "auto",
	DIALECT_EBPF:    "ebpf",
	DIALECT_CLASSIC: "classic",
}

func (d Dialect) String() string {
	return dialectNames[d]
}

// ParseDialect returns the dialect for a name.
func ParseDialect(name string) (d Dialect, ok bool) {
	for d, dname := range dialectNames {
		if dname == name {
			return d, true
		}
	}
	return
}

// Labels maps label names to instruction indexes.
type Labels map[string]int

// Parsed is one parsed instruction. Names that need a symbol table are
// left for Resolve; jump labels are already converted to offsets.
type Parsed struct {
	bpf.Instruction
	Line       string // Source line text.
	Label      string // Call target by name.
	Extension  string // Immediate by symbol name.
	Expression string // Immediate by $(...) expression.
	TrueLabel  string // Jump target label.
	FalseLabel string // Classic false branch label.
}

// Unit is the parsed form of one assembly source.
type Unit struct {
	Dialect      Dialect
	Instructions []Parsed
	Labels       Labels

	lines []string // Source split into lines.
	ends  []int    // Index into lines of each instruction's line.
}

// sourceLine is one lexed line of source.
type sourceLine struct {
	lineNo int
	text   string
	labels []string
	tokens []token
}

// Parse parses source text. Every error is an *ErrSyntax.
func Parse(source string, dialect Dialect) (unit *Unit, err error) {
	defer func() {
		if err != nil {
			unit = nil
		}
	}()

	lines := strings.Split(source, "\n")

	var parsed []sourceLine
	for n, text := range lines {
		text = strings.TrimSuffix(text, "\r")
		lines[n] = text

		var tokens []token
		tokens, err = lexLine(text)
		if err != nil {
			err = &ErrSyntax{LineNo: n + 1, Line: text, Err: err}
			return
		}

		sl := sourceLine{lineNo: n + 1, text: text}
		sl.labels, sl.tokens = peelLabels(tokens)
		parsed = append(parsed, sl)
	}

	if dialect == DIALECT_AUTO {
		dialect, err = detectDialect(parsed)
		if err != nil {
			return
		}
	}

	unit = &Unit{
		Dialect: dialect,
		Labels:  Labels{},
		lines:   lines,
	}

	for _, sl := range parsed {
		for _, label := range sl.labels {
			_, dup := unit.Labels[label]
			if dup {
				err = &ErrSyntax{LineNo: sl.lineNo, Line: sl.text, Err: ErrLabelDuplicate}
				return
			}
			unit.Labels[label] = len(unit.Instructions)
		}

		if len(sl.tokens) == 0 {
			continue
		}

		cur := &cursor{tokens: sl.tokens}
		p := Parsed{Line: sl.text}
		p.LineNo = sl.lineNo

		if dialect == DIALECT_CLASSIC {
			err = cur.parseClassic(&p)
		} else {
			err = cur.parseEbpf(&p)
		}
		if err != nil {
			err = &ErrSyntax{LineNo: sl.lineNo, Line: sl.text, Err: err}
			return
		}

		unit.Instructions = append(unit.Instructions, p)
		unit.ends = append(unit.ends, sl.lineNo-1)
	}

	err = unit.linkJumps()
	return
}

// peelLabels removes 'name:' and 'name, name:' prefixes.
func peelLabels(tokens []token) (labels []string, rest []token) {
	rest = tokens
	for {
		var names []string
		n := 0
		for n < len(rest) && rest[n].Kind == TOKEN_IDENT && !strings.HasPrefix(rest[n].Value, "%") {
			names = append(names, rest[n].Value)
			n++
			if n+1 < len(rest) && rest[n].is(",") && rest[n+1].Kind == TOKEN_IDENT {
				n++
				continue
			}
			break
		}
		if len(names) == 0 || n >= len(rest) || !rest[n].is(":") {
			return
		}
		labels = append(labels, names...)
		rest = rest[n+1:]
	}
}

// ebpfOnly is true when a mnemonic exists only in eBPF.
func ebpfOnly(name string) bool {
	_, ok := bpf.LookupMnemonic(name)
	return ok && !bpf.IsClassic(name)
}

// detectDialect scans for constructs that only one dialect has.
func detectDialect(lines []sourceLine) (dialect Dialect, err error) {
	var classic, ebpf *sourceLine

	for n := range lines {
		sl := &lines[n]
		if len(sl.tokens) == 0 {
			continue
		}

		name := strings.ToLower(sl.tokens[0].Value)
		operands := sl.tokens[1:]

		isEbpf := ebpfOnly(name)
		for _, tok := range operands {
			if tok.Kind == TOKEN_IDENT && bpf.IsRegister(tok.Value) {
				isEbpf = true
			}
		}

		isClassic := bpf.IsClassicOnly(name)
		for _, tok := range operands {
			if tok.is("*") {
				isClassic = true
			}
		}
		if bpf.IsClassic(name) && len(operands) > 0 {
			first := operands[0]
			switch {
			case first.is("#"):
				isClassic = true
			case name != "ja" && pseudoRegister(first) != bpf.OPERAND_NONE:
				isClassic = true
			case first.Kind == TOKEN_IDENT && first.Value == "M" && len(operands) > 1 && operands[1].is("["):
				isClassic = true
			}
		}

		if isEbpf && ebpf == nil {
			ebpf = sl
		}
		if isClassic && classic == nil {
			classic = sl
		}
		if classic != nil && ebpf != nil {
			later := classic
			if ebpf.lineNo > classic.lineNo {
				later = ebpf
			}
			err = &ErrSyntax{LineNo: later.lineNo, Line: later.text, Err: ErrDialectMixed}
			return
		}
	}

	dialect = DIALECT_EBPF
	if classic != nil {
		dialect = DIALECT_CLASSIC
	}
	return
}

// pseudoRegister classifies the classic 'a' and 'x' operands.
func pseudoRegister(tok token) bpf.Operand {
	if tok.Kind != TOKEN_IDENT {
		return bpf.OPERAND_NONE
	}
	switch strings.ToLower(strings.TrimPrefix(tok.Value, "%")) {
	case "a":
		return bpf.OPERAND_A
	case "x":
		return bpf.OPERAND_X
	}
	return bpf.OPERAND_NONE
}

// slotWidth is the number of 8-byte slots an instruction occupies.
func (unit *Unit) slotWidth(p *Parsed) int {
	if unit.Dialect != DIALECT_CLASSIC && bpf.CanonicalName(p.Opname) == "lddw" {
		return 2
	}
	return 1
}

// linkJumps converts jump labels to slot offsets. Only forward jumps to
// labels bound to an instruction are allowed.
func (unit *Unit) linkJumps() (err error) {
	starts := make([]int, len(unit.Instructions)+1)
	for n := range unit.Instructions {
		starts[n+1] = starts[n] + unit.slotWidth(&unit.Instructions[n])
	}

	distance := func(n int, label string) (dist int, err error) {
		target, ok := unit.Labels[label]
		if !ok {
			err = ErrLabelMissing(label)
			return
		}
		if target <= n {
			err = ErrJumpBackward
			return
		}
		if target >= len(unit.Instructions) {
			err = ErrJumpRange
			return
		}
		dist = starts[target] - starts[n+1]
		return
	}

	for n := range unit.Instructions {
		p := &unit.Instructions[n]
		if len(p.TrueLabel) != 0 {
			var dist int
			dist, err = distance(n, p.TrueLabel)
			if err == nil {
				if unit.Dialect == DIALECT_CLASSIC {
					p.JumpTrue = dist
				} else if dist > math.MaxInt16 {
					err = ErrJumpRange
				} else {
					p.Offset = dist
				}
			}
		}
		if err == nil && len(p.FalseLabel) != 0 {
			p.JumpFalse, err = distance(n, p.FalseLabel)
		}
		if err != nil {
			err = &ErrSyntax{LineNo: p.LineNo, Line: p.Line, Err: err}
			return
		}
	}

	return
}

// cursor walks the operand tokens of one instruction.
type cursor struct {
	tokens []token
	pos    int
}

func (tok token) is(punct string) bool {
	return tok.Kind == TOKEN_PUNCT && tok.Value == punct
}

func (cur *cursor) peek() (tok token, ok bool) {
	if cur.pos >= len(cur.tokens) {
		return
	}
	return cur.tokens[cur.pos], true
}

func (cur *cursor) next() (tok token, err error) {
	tok, ok := cur.peek()
	if !ok {
		err = ErrOperandMissing
		return
	}
	cur.pos++
	return
}

// accept consumes punct if it is next.
func (cur *cursor) accept(punct string) bool {
	tok, ok := cur.peek()
	if ok && tok.is(punct) {
		cur.pos++
		return true
	}
	return false
}

func (cur *cursor) expect(punct string) (err error) {
	if cur.accept(punct) {
		return
	}
	if _, ok := cur.peek(); !ok {
		return ErrOperandMissing
	}
	return ErrOperandInvalid
}

// closing consumes a closing bracket or parenthesis.
func (cur *cursor) closing(punct string) (err error) {
	if cur.accept(punct) {
		return
	}
	if _, ok := cur.peek(); !ok {
		return ErrBracket
	}
	return ErrOperandInvalid
}

func (cur *cursor) end() (err error) {
	if _, ok := cur.peek(); ok {
		err = ErrOperandExtra
	}
	return
}

// mnemonic consumes the lower cased opcode name.
func (cur *cursor) mnemonic() (name string, err error) {
	tok, err := cur.next()
	if err != nil {
		err = ErrOpcodeMissing
		return
	}
	if tok.Kind != TOKEN_IDENT {
		err = ErrOpcodeMissing
		return
	}
	name = strings.ToLower(tok.Value)
	return
}

func (cur *cursor) register() (reg bpf.Register, err error) {
	tok, err := cur.next()
	if err != nil {
		return
	}
	if tok.Kind != TOKEN_IDENT {
		err = ErrOperandInvalid
		return
	}
	reg, err = bpf.ParseRegister(tok.Value)
	return
}

// isRegister is true when the next token names an eBPF register.
func (cur *cursor) isRegister() bool {
	tok, ok := cur.peek()
	return ok && tok.Kind == TOKEN_IDENT && bpf.IsRegister(tok.Value)
}

// number consumes a signed numeric literal, with an optional separate
// '+' or '-' sign token.
func (cur *cursor) number() (imm bpf.Imm, err error) {
	sign := ""
	if cur.accept("-") {
		sign = "-"
	} else {
		cur.accept("+")
	}
	tok, err := cur.next()
	if err != nil {
		return
	}
	if tok.Kind != TOKEN_NUMBER {
		err = ErrOperandInvalid
		return
	}
	if len(sign) != 0 && strings.ContainsAny(tok.Value[:1], "+-") {
		err = bpf.ErrParseNumber(sign + tok.Value)
		return
	}
	imm, err = bpf.ParseImm(sign + tok.Value)
	return
}

// immediate consumes '#'? followed by a number, a $(...) expression or a
// symbol name.
func (cur *cursor) immediate(p *Parsed) (err error) {
	cur.accept("#")
	tok, ok := cur.peek()
	if !ok {
		return ErrOperandMissing
	}

	switch tok.Kind {
	case TOKEN_EXPR:
		cur.pos++
		p.Expression = tok.Value[2 : len(tok.Value)-1]
	case TOKEN_IDENT:
		if bpf.IsRegister(tok.Value) || strings.HasPrefix(tok.Value, "%") {
			return ErrOperandInvalid
		}
		cur.pos++
		p.Extension = tok.Value
	default:
		p.Imm, err = cur.number()
	}
	return
}

// offset converts a parsed displacement to an int.
func offset(imm bpf.Imm) (off int, err error) {
	if !imm.Fits32() || (!imm.Neg && imm.Bits > math.MaxInt32) {
		err = bpf.ErrOffsetRange
		return
	}
	off = int(imm.Int64())
	return
}

// memory consumes '[rN]', '[rN+off]' or '[rN-off]'.
func (cur *cursor) memory() (base bpf.Register, off int, err error) {
	err = cur.expect("[")
	if err != nil {
		return
	}
	base, err = cur.register()
	if err != nil {
		return
	}

	tok, ok := cur.peek()
	if ok && (tok.Kind == TOKEN_NUMBER || tok.is("+") || tok.is("-")) {
		var imm bpf.Imm
		imm, err = cur.number()
		if err != nil {
			return
		}
		off, err = offset(imm)
		if err != nil {
			return
		}
	}

	err = cur.closing("]")
	return
}

// target consumes a jump target: a signed offset or a label.
func (cur *cursor) target(p *Parsed) (err error) {
	tok, ok := cur.peek()
	if !ok {
		return ErrOperandMissing
	}
	if tok.Kind == TOKEN_IDENT {
		if bpf.IsRegister(tok.Value) {
			return ErrOperandInvalid
		}
		cur.pos++
		p.TrueLabel = tok.Value
		return
	}

	imm, err := cur.number()
	if err != nil {
		return
	}
	p.Offset, err = offset(imm)
	return
}

// parseEbpf parses one eBPF instruction.
func (cur *cursor) parseEbpf(p *Parsed) (err error) {
	name, err := cur.mnemonic()
	if err != nil {
		return
	}

	mn, ok := bpf.LookupMnemonic(name)
	if !ok {
		err = bpf.ErrMnemonic(name)
		return
	}
	p.Opname = mn.Name

	switch mn.Family {
	case bpf.FAMILY_ALU:
		if p.Dest, err = cur.register(); err != nil {
			return
		}
		if err = cur.expect(","); err != nil {
			return
		}
		if cur.isRegister() {
			p.Source, err = cur.register()
		} else {
			err = cur.immediate(p)
		}
	case bpf.FAMILY_NEG, bpf.FAMILY_ENDIAN:
		p.Dest, err = cur.register()
	case bpf.FAMILY_LDDW:
		if p.Dest, err = cur.register(); err != nil {
			return
		}
		if err = cur.expect(","); err != nil {
			return
		}
		err = cur.immediate(p)
	case bpf.FAMILY_LOADX:
		if p.Dest, err = cur.register(); err != nil {
			return
		}
		if err = cur.expect(","); err != nil {
			return
		}
		p.Source, p.Offset, err = cur.memory()
	case bpf.FAMILY_STORE:
		if p.Dest, p.Offset, err = cur.memory(); err != nil {
			return
		}
		if err = cur.expect(","); err != nil {
			return
		}
		err = cur.immediate(p)
	case bpf.FAMILY_STOREX:
		if p.Dest, p.Offset, err = cur.memory(); err != nil {
			return
		}
		if err = cur.expect(","); err != nil {
			return
		}
		p.Source, err = cur.register()
	case bpf.FAMILY_LDABS:
		err = cur.immediate(p)
	case bpf.FAMILY_LDIND:
		if p.Source, err = cur.register(); err != nil {
			return
		}
		if err = cur.expect(","); err != nil {
			return
		}
		err = cur.immediate(p)
	case bpf.FAMILY_JA:
		err = cur.target(p)
	case bpf.FAMILY_JUMP:
		if p.Dest, err = cur.register(); err != nil {
			return
		}
		if err = cur.expect(","); err != nil {
			return
		}
		if cur.isRegister() {
			p.Source, err = cur.register()
		} else {
			err = cur.immediate(p)
		}
		if err != nil {
			return
		}
		if err = cur.expect(","); err != nil {
			return
		}
		err = cur.target(p)
	case bpf.FAMILY_CALL:
		tok, ok := cur.peek()
		if ok && tok.Kind == TOKEN_IDENT && !bpf.IsRegister(tok.Value) {
			cur.pos++
			p.Label = tok.Value
		} else if ok && tok.Kind == TOKEN_IDENT {
			err = ErrOperandInvalid
		} else {
			err = cur.immediate(p)
		}
	case bpf.FAMILY_EXIT:
	}
	if err != nil {
		return
	}

	err = cur.end()
	return
}

// classicOperand consumes one classic operand.
func (cur *cursor) classicOperand(p *Parsed) (err error) {
	tok, ok := cur.peek()
	if !ok {
		return ErrOperandMissing
	}

	switch {
	case tok.is("#"):
		p.Operand = bpf.OPERAND_K
		err = cur.immediate(p)
	case tok.is("["):
		cur.pos++
		p.Operand = bpf.OPERAND_ABS
		if inner, ok := cur.peek(); ok && pseudoRegister(inner) == bpf.OPERAND_X {
			cur.pos++
			p.Operand = bpf.OPERAND_IND
			next, ok := cur.peek()
			switch {
			case !ok:
				return ErrBracket
			case next.is("]"):
				cur.pos++
				return
			case next.is("+"):
				cur.pos++
			case next.Kind != TOKEN_NUMBER:
				return ErrOperandInvalid
			}
		}
		if err = cur.immediate(p); err != nil {
			return
		}
		err = cur.closing("]")
	case tok.Kind == TOKEN_IDENT && tok.Value == "M":
		cur.pos++
		p.Operand = bpf.OPERAND_MEM
		if err = cur.expect("["); err != nil {
			return
		}
		if err = cur.immediate(p); err != nil {
			return
		}
		err = cur.closing("]")
	case tok.Kind == TOKEN_NUMBER:
		// 4*([k]&0xf)
		var imm bpf.Imm
		if imm, err = cur.number(); err != nil {
			return
		}
		if imm != bpf.ImmInt(4) {
			return ErrOperandInvalid
		}
		p.Operand = bpf.OPERAND_MSH
		for _, punct := range []string{"*", "(", "["} {
			if err = cur.expect(punct); err != nil {
				return
			}
		}
		if err = cur.immediate(p); err != nil {
			return
		}
		if err = cur.closing("]"); err != nil {
			return
		}
		if err = cur.expect("&"); err != nil {
			return
		}
		if imm, err = cur.number(); err != nil {
			return
		}
		if imm != bpf.ImmInt(0xf) {
			return ErrOperandInvalid
		}
		err = cur.closing(")")
	case pseudoRegister(tok) != bpf.OPERAND_NONE:
		cur.pos++
		p.Operand = pseudoRegister(tok)
	case tok.Kind == TOKEN_IDENT && tok.Value == "len":
		cur.pos++
		p.Operand = bpf.OPERAND_LEN
	case tok.Kind == TOKEN_IDENT:
		p.Operand = bpf.OPERAND_ABS
		err = cur.immediate(p)
	default:
		err = ErrOperandInvalid
	}

	return
}

// classicTarget consumes a classic jump target.
func (cur *cursor) classicTarget(p *Parsed, label *string, offset *int) (err error) {
	tok, err := cur.next()
	if err != nil {
		return
	}
	switch tok.Kind {
	case TOKEN_IDENT:
		*label = tok.Value
	case TOKEN_NUMBER:
		var imm bpf.Imm
		if imm, err = bpf.ParseImm(tok.Value); err != nil {
			return
		}
		if imm.Neg || imm.Bits > math.MaxInt32 {
			return ErrJumpBackward
		}
		*offset = int(imm.Bits)
	default:
		err = ErrOperandInvalid
	}
	return
}

// parseClassic parses one classic BPF instruction.
func (cur *cursor) parseClassic(p *Parsed) (err error) {
	name, err := cur.mnemonic()
	if err != nil {
		return
	}
	if !bpf.IsClassic(name) {
		err = bpf.ErrMnemonic(name)
		return
	}
	p.Opname = name

	jump, dual := bpf.IsClassicJump(name)
	switch {
	case name == "ja" || name == "jmp":
		err = cur.classicTarget(p, &p.TrueLabel, &p.JumpTrue)
	case jump:
		if err = cur.classicOperand(p); err != nil {
			return
		}
		if err = cur.expect(","); err != nil {
			return
		}
		if err = cur.classicTarget(p, &p.TrueLabel, &p.JumpTrue); err != nil {
			return
		}
		if cur.accept(",") {
			if !dual {
				return bpf.ErrFalseTarget
			}
			err = cur.classicTarget(p, &p.FalseLabel, &p.JumpFalse)
		}
	case name == "tax" || name == "txa":
	case name == "neg":
		// Classic neg has no operand, eBPF neg names its register.
		if cur.isRegister() {
			return ErrOperandInvalid
		}
	default:
		err = cur.classicOperand(p)
	}
	if err != nil {
		return
	}

	err = cur.end()
	return
}
