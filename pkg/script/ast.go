// Package script runs small debug scripts against a DMI port. A script is a
// line-oriented list of commands for bring-up and smoke testing:
//
//	# probe the DM
//	connect
//	expect dmstatus 0x2 mask 0xf
//	write dmcontrol 0x1
//	sleep 10ms
//	read 0x40
package script

import (
	"strconv"
	"time"

	"github.com/alecthomas/participle/v2/lexer"
)

// ScriptLexer defines the lexical structure of debug scripts.
var ScriptLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},

	{Name: "KwConnect", Pattern: `\bconnect\b`},
	{Name: "KwWrite", Pattern: `\bwrite\b`},
	{Name: "KwRead", Pattern: `\bread\b`},
	{Name: "KwExpect", Pattern: `\bexpect\b`},
	{Name: "KwMask", Pattern: `\bmask\b`},
	{Name: "KwSleep", Pattern: `\bsleep\b`},

	// Duration must come before Number: both can start with digits.
	{Name: "Duration", Pattern: `\d+(?:\.\d+)?(?:ns|us|µs|ms|s|m|h)`},
	{Name: "Number", Pattern: `0[xX][0-9a-fA-F]+|\d+`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
})

// Num is a 32-bit literal, decimal or 0x-prefixed hex.
type Num struct {
	Value uint32
}

// Capture implements participle's value capture.
func (n *Num) Capture(values []string) error {
	v, err := strconv.ParseUint(values[0], 0, 32)
	if err != nil {
		return err
	}
	n.Value = uint32(v)
	return nil
}

// Dur is a Go-syntax duration literal.
type Dur struct {
	Value time.Duration
}

// Capture implements participle's value capture.
func (d *Dur) Capture(values []string) error {
	v, err := time.ParseDuration(values[0])
	if err != nil {
		return err
	}
	d.Value = v
	return nil
}

// Script is a parsed debug script.
type Script struct {
	Statements []*Statement `@@*`
}

// Statement is one command line.
type Statement struct {
	Connect bool    `  @KwConnect`
	Write   *Write  `| @@`
	Read    *Read   `| @@`
	Expect  *Expect `| @@`
	Sleep   *Sleep  `| @@`
}

// Write stores a value into a DM register.
// Example: write dmcontrol 0x1
type Write struct {
	Reg   *Operand `KwWrite @@`
	Value Num      `@Number`
}

// Read fetches and logs a DM register.
// Example: read dmstatus
type Read struct {
	Reg *Operand `KwRead @@`
}

// Expect reads a register and fails the run unless the masked value matches.
// Example: expect dmstatus 0x2 mask 0xf
type Expect struct {
	Reg   *Operand `KwExpect @@`
	Value Num      `@Number`
	Mask  *Num     `(KwMask @Number)?`
}

// Sleep pauses the run.
// Example: sleep 100ms
type Sleep struct {
	Duration Dur `KwSleep @Duration`
}

// Operand names a DM register either symbolically or by DMI address.
type Operand struct {
	Name   string `  @Ident`
	Number *Num   `| @Number`
}
