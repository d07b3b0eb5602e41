// Package telnet implements the byte-level half of an RFC 854 client:
// command constants, the IAC state machine that turns a raw stream into
// text lines, and the charset used to decode those lines.
//
// Nothing in this package touches sockets or goroutines.  The session
// layer feeds it whatever the network delivered and acts on the result.
package telnet

import "fmt"

// ── Commands (RFC 854, RFC 885) ──────────────────────────────────────

const (
	IAC  byte = 255 // Interpret As Command
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250 // subnegotiation begin
	GA   byte = 249 // go ahead
	EL   byte = 248 // erase line
	EC   byte = 247 // erase character
	AYT  byte = 246 // are you there
	AO   byte = 245 // abort output
	IP   byte = 244 // interrupt process
	BRK  byte = 243 // break
	DM   byte = 242 // data mark
	NOP  byte = 241
	SE   byte = 240 // subnegotiation end
	EOR  byte = 239 // end of record
)

// ── Option codes ─────────────────────────────────────────────────────

const (
	OptBinary     byte = 0
	OptEcho       byte = 1
	OptSGA        byte = 3 // suppress go ahead
	OptStatus     byte = 5
	OptTimingMark byte = 6
	OptTTYPE      byte = 24
	OptEOR        byte = 25
	OptNAWS       byte = 31
	OptLinemode   byte = 34
	OptNewEnviron byte = 39
	OptCharset    byte = 42
	OptMSDP       byte = 69
	OptMSSP       byte = 70
	OptMCCP2      byte = 86
	OptMSP        byte = 90
	OptMXP        byte = 91
	OptGMCP       byte = 201
)

var commandNames = map[byte]string{
	DONT: "DONT", DO: "DO", WONT: "WONT", WILL: "WILL",
	SB: "SB", GA: "GA", EL: "EL", EC: "EC", AYT: "AYT", AO: "AO",
	IP: "IP", BRK: "BRK", DM: "DM", NOP: "NOP", SE: "SE", EOR: "EOR",
	IAC: "IAC",
}

var optionNames = map[byte]string{
	OptBinary: "BINARY", OptEcho: "ECHO", OptSGA: "SGA", OptStatus: "STATUS",
	OptTimingMark: "TIMING-MARK", OptTTYPE: "TTYPE", OptEOR: "EOR",
	OptNAWS: "NAWS", OptLinemode: "LINEMODE", OptNewEnviron: "NEW-ENVIRON",
	OptCharset: "CHARSET", OptMSDP: "MSDP", OptMSSP: "MSSP",
	OptMCCP2: "MCCP2", OptMSP: "MSP", OptMXP: "MXP", OptGMCP: "GMCP",
}

// CommandName returns the mnemonic for a command byte, or its decimal
// value when the byte is not a known command.
func CommandName(cmd byte) string {
	if name, ok := commandNames[cmd]; ok {
		return name
	}
	return fmt.Sprintf("CMD(%d)", cmd)
}

// OptionName returns the mnemonic for an option code.
func OptionName(opt byte) string {
	if name, ok := optionNames[opt]; ok {
		return name
	}
	return fmt.Sprintf("OPT(%d)", opt)
}

// ── Negotiation ──────────────────────────────────────────────────────

// Negotiation is a (command, option) pair such as DONT ECHO.
type Negotiation struct {
	Command byte
	Option  byte
}

// Bytes returns the wire form IAC <command> <option>.
func (n Negotiation) Bytes() []byte {
	return []byte{IAC, n.Command, n.Option}
}

func (n Negotiation) String() string {
	return CommandName(n.Command) + " " + OptionName(n.Option)
}

// Refusal returns the reply that declines n, and false when n needs no
// reply.  Every offer is declined: WILL is answered DONT and DO is
// answered WONT.  WONT and DONT are acknowledgements and get nothing.
func Refusal(n Negotiation) (Negotiation, bool) {
	switch n.Command {
	case WILL:
		return Negotiation{Command: DONT, Option: n.Option}, true
	case DO:
		return Negotiation{Command: WONT, Option: n.Option}, true
	}
	return Negotiation{}, false
}

// EscapeIAC doubles every 0xFF in p so it travels as data.  p is
// returned unchanged when it holds no IAC byte.
func EscapeIAC(p []byte) []byte {
	n := 0
	for _, b := range p {
		if b == IAC {
			n++
		}
	}
	if n == 0 {
		return p
	}
	out := make([]byte, 0, len(p)+n)
	for _, b := range p {
		out = append(out, b)
		if b == IAC {
			out = append(out, IAC)
		}
	}
	return out
}
