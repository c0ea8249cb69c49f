// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package bpf

// Class is the 3-bit instruction class in the low bits of the opcode byte.
type Class uint8

const (
	CLS_LD    = Class(0x00) // ld
	CLS_LDX   = Class(0x01) // ldx
	CLS_ST    = Class(0x02) // st
	CLS_STX   = Class(0x03) // stx
	CLS_ALU   = Class(0x04) // alu
	CLS_JMP   = Class(0x05) // jmp
	CLS_JMP32 = Class(0x06) // jmp32, classic ret
	CLS_ALU64 = Class(0x07) // alu64, classic misc
)

// Classic BPF reuses the top two class values.
const (
	CLS_RET  = CLS_JMP32
	CLS_MISC = CLS_ALU64
)

// Size is the access width of a load or store.
type Size uint8

const (
	SIZE_W  = Size(0x00) // w
	SIZE_H  = Size(0x08) // h
	SIZE_B  = Size(0x10) // b
	SIZE_DW = Size(0x18) // dw
)

// Mode is the addressing mode of a load or store.
type Mode uint8

const (
	MODE_IMM = Mode(0x00)
	MODE_ABS = Mode(0x20)
	MODE_IND = Mode(0x40)
	MODE_MEM = Mode(0x60)
	MODE_LEN = Mode(0x80) // classic only
	MODE_MSH = Mode(0xa0) // classic only
)

// Source selects between the immediate and the source register.
// Endian operations reuse it to select byte order, and classic
// return instructions use the wider RVAL field.
type Source uint8

const (
	SRC_IMM   = Source(0x00)
	SRC_REG   = Source(0x08)
	ENDIAN_LE = Source(0x00)
	ENDIAN_BE = Source(0x08)
	RVAL_K    = Source(0x00)
	RVAL_X    = Source(0x08)
	RVAL_A    = Source(0x10)
)

// AluOp is the operation nibble of an ALU instruction.
type AluOp uint8

const (
	ALU_ADD  = AluOp(0x00) // add
	ALU_SUB  = AluOp(0x10) // sub
	ALU_MUL  = AluOp(0x20) // mul
	ALU_DIV  = AluOp(0x30) // div
	ALU_OR   = AluOp(0x40) // or
	ALU_AND  = AluOp(0x50) // and
	ALU_LSH  = AluOp(0x60) // lsh
	ALU_RSH  = AluOp(0x70) // rsh
	ALU_NEG  = AluOp(0x80) // neg
	ALU_MOD  = AluOp(0x90) // mod
	ALU_XOR  = AluOp(0xa0) // xor
	ALU_MOV  = AluOp(0xb0) // mov
	ALU_ARSH = AluOp(0xc0) // arsh
	ALU_END  = AluOp(0xd0) // le/be
)

// JmpOp is the operation nibble of a jump instruction.
type JmpOp uint8

const (
	JMP_JA   = JmpOp(0x00) // ja
	JMP_JEQ  = JmpOp(0x10) // jeq
	JMP_JGT  = JmpOp(0x20) // jgt
	JMP_JGE  = JmpOp(0x30) // jge
	JMP_JSET = JmpOp(0x40) // jset
	JMP_JNE  = JmpOp(0x50) // jne
	JMP_JSGT = JmpOp(0x60) // jsgt
	JMP_JSGE = JmpOp(0x70) // jsge
	JMP_CALL = JmpOp(0x80) // call
	JMP_EXIT = JmpOp(0x90) // exit
	JMP_JLT  = JmpOp(0xa0) // jlt
	JMP_JLE  = JmpOp(0xb0) // jle
	JMP_JSLT = JmpOp(0xc0) // jslt
	JMP_JSLE = JmpOp(0xd0) // jsle
)

// Classic BPF miscellaneous operations.
const (
	MISC_TAX = uint8(0x00)
	MISC_TXA = uint8(0x80)
)

// Field extractors for an opcode byte.

func ClassOf(op uint8) Class   { return Class(op & 0x07) }
func SizeOf(op uint8) Size     { return Size(op & 0x18) }
func ModeOf(op uint8) Mode     { return Mode(op & 0xe0) }
func SourceOf(op uint8) Source { return Source(op & 0x08) }
func AluOpOf(op uint8) AluOp   { return AluOp(op & 0xf0) }
func JmpOpOf(op uint8) JmpOp   { return JmpOp(op & 0xf0) }

// Name tables, indexed by the field value shifted down to a small integer.
var (
	classNames = [8]string{"ld", "ldx", "st", "stx", "alu", "jmp", "jmp32", "alu64"}
	sizeNames  = [4]string{"w", "h", "b", "dw"}
	aluNames   = [16]string{
		"add", "sub", "mul", "div", "or", "and", "lsh", "rsh",
		"neg", "mod", "xor", "mov", "arsh", "", "", "",
	}
	jmpNames = [16]string{
		"ja", "jeq", "jgt", "jge", "jset", "jne", "jsgt", "jsge",
		"call", "exit", "jlt", "jle", "jslt", "jsle", "", "",
	}
)

func (cls Class) String() string { return classNames[cls&0x07] }
func (size Size) String() string { return sizeNames[(size>>3)&0x3] }
func (op AluOp) String() string  { return aluNames[op>>4] }
func (op JmpOp) String() string  { return jmpNames[op>>4] }

// Family groups mnemonics that share operand rules and packing.
type Family int

const (
	FAMILY_ALU    = Family(iota) // op dst, src|imm
	FAMILY_NEG                   // op dst
	FAMILY_ENDIAN                // op dst
	FAMILY_LDDW                  // lddw dst, imm64
	FAMILY_LOADX                 // ldx* dst, [src+off]
	FAMILY_STORE                 // st* [dst+off], imm
	FAMILY_STOREX                // stx* [dst+off], src
	FAMILY_LDABS                 // ldabs* imm
	FAMILY_LDIND                 // ldind* src, imm
	FAMILY_JA                    // ja off
	FAMILY_JUMP                  // j* dst, src|imm, off
	FAMILY_CALL                  // call imm
	FAMILY_EXIT                  // exit
)

// Mnemonic describes one eBPF mnemonic.
type Mnemonic struct {
	Name   string
	Family Family
	Class  Class
	Op     uint8 // AluOp, JmpOp, or Size, depending on Family.
	Source Source
	Width  int // Bit width for endian operations.
}

func alu(name string, op AluOp) []Mnemonic {
	family := FAMILY_ALU
	if op == ALU_NEG {
		family = FAMILY_NEG
	}
	return []Mnemonic{
		{Name: name, Family: family, Class: CLS_ALU64, Op: uint8(op)},
		{Name: name + "32", Family: family, Class: CLS_ALU, Op: uint8(op)},
	}
}

func jump(name string, op JmpOp) []Mnemonic {
	return []Mnemonic{
		{Name: name, Family: FAMILY_JUMP, Class: CLS_JMP, Op: uint8(op)},
		{Name: name + "32", Family: FAMILY_JUMP, Class: CLS_JMP32, Op: uint8(op)},
	}
}

func memory(prefix string, family Family, cls Class) (list []Mnemonic) {
	for _, size := range []Size{SIZE_W, SIZE_H, SIZE_B, SIZE_DW} {
		list = append(list, Mnemonic{Name: prefix + size.String(), Family: family, Class: cls, Op: uint8(size)})
	}
	return
}

func endian(name string, order Source, width int) Mnemonic {
	return Mnemonic{Name: name, Family: FAMILY_ENDIAN, Class: CLS_ALU, Op: uint8(ALU_END), Source: order, Width: width}
}

// mnemonicList is the complete eBPF instruction set accepted by the encoder.
var mnemonicList = concat(
	[]Mnemonic{{Name: "lddw", Family: FAMILY_LDDW, Class: CLS_LD, Op: uint8(SIZE_DW)}},
	memory("ldx", FAMILY_LOADX, CLS_LDX),
	memory("st", FAMILY_STORE, CLS_ST),
	memory("stx", FAMILY_STOREX, CLS_STX),
	memory("ldabs", FAMILY_LDABS, CLS_LD),
	memory("ldind", FAMILY_LDIND, CLS_LD),
	alu("add", ALU_ADD),
	alu("sub", ALU_SUB),
	alu("mul", ALU_MUL),
	alu("div", ALU_DIV),
	alu("or", ALU_OR),
	alu("and", ALU_AND),
	alu("lsh", ALU_LSH),
	alu("rsh", ALU_RSH),
	alu("neg", ALU_NEG),
	alu("mod", ALU_MOD),
	alu("xor", ALU_XOR),
	alu("mov", ALU_MOV),
	alu("arsh", ALU_ARSH),
	[]Mnemonic{
		endian("le16", ENDIAN_LE, 16),
		endian("le32", ENDIAN_LE, 32),
		endian("le64", ENDIAN_LE, 64),
		endian("be16", ENDIAN_BE, 16),
		endian("be32", ENDIAN_BE, 32),
		endian("be64", ENDIAN_BE, 64),
		// There is no ja32; ja takes no register operands.
		{Name: "ja", Family: FAMILY_JA, Class: CLS_JMP, Op: uint8(JMP_JA)},
		{Name: "call", Family: FAMILY_CALL, Class: CLS_JMP, Op: uint8(JMP_CALL)},
		{Name: "exit", Family: FAMILY_EXIT, Class: CLS_JMP, Op: uint8(JMP_EXIT)},
	},
	jump("jeq", JMP_JEQ),
	jump("jgt", JMP_JGT),
	jump("jge", JMP_JGE),
	jump("jlt", JMP_JLT),
	jump("jle", JMP_JLE),
	jump("jset", JMP_JSET),
	jump("jne", JMP_JNE),
	jump("jsgt", JMP_JSGT),
	jump("jsge", JMP_JSGE),
	jump("jslt", JMP_JSLT),
	jump("jsle", JMP_JSLE),
)

// mnemonicAlias maps accepted synonyms to their canonical mnemonic.
var mnemonicAlias = map[string]string{
	"jneq":   "jne",
	"jneq32": "jne32",
}

var mnemonicMap = func() map[string]Mnemonic {
	table := make(map[string]Mnemonic, len(mnemonicList))
	for _, mn := range mnemonicList {
		table[mn.Name] = mn
	}
	return table
}()

func concat(lists ...[]Mnemonic) (all []Mnemonic) {
	for _, list := range lists {
		all = append(all, list...)
	}
	return
}

// CanonicalName resolves mnemonic synonyms.
func CanonicalName(name string) string {
	canon, ok := mnemonicAlias[name]
	if ok {
		return canon
	}
	return name
}

// LookupMnemonic returns the eBPF mnemonic for name, resolving synonyms.
func LookupMnemonic(name string) (mn Mnemonic, ok bool) {
	mn, ok = mnemonicMap[CanonicalName(name)]
	return
}

// Mnemonics returns the eBPF mnemonic table.
func Mnemonics() []Mnemonic {
	return mnemonicList
}
