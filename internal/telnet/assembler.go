package telnet

// mode is the IAC parser state.  There is no terminal state: the parser
// cycles for as long as the connection lives.
type mode int

const (
	modeData      mode = iota
	modeIAC            // saw IAC in the data stream
	modeCommand        // saw IAC <verb>, waiting for the option byte
	modeSubneg         // inside IAC SB … (option not yet read if !subOptSet)
	modeSubnegIAC      // saw IAC inside a subnegotiation
)

// FeedResult is what one call to [Assembler.Feed] produced.
type FeedResult struct {
	// Lines completed by this chunk, oldest first, without terminators.
	Lines []string
	// Replies to write back to the remote, in the order their triggering
	// commands were parsed.
	Replies []Negotiation
}

// SubnegotiationHandler receives the payload of a completed IAC SB … IAC SE
// sequence.  The payload slice is only valid for the duration of the call.
type SubnegotiationHandler func(option byte, payload []byte)

// AssemblerOption configures an [Assembler].
type AssemblerOption func(*Assembler)

// WithCharset sets the charset used to decode completed lines.
func WithCharset(cs *Charset) AssemblerOption {
	return func(a *Assembler) {
		if cs != nil {
			a.charset = cs
		}
	}
}

// WithSubnegotiationHandler installs a hook for subnegotiation payloads.
// Without one, payloads are parsed and discarded.
func WithSubnegotiationHandler(fn SubnegotiationHandler) AssemblerOption {
	return func(a *Assembler) { a.onSubneg = fn }
}

// WithNegotiationHandler installs a hook that sees every IAC <command>
// <option> triple received, before the refusal policy runs.
func WithNegotiationHandler(fn func(Negotiation)) AssemblerOption {
	return func(a *Assembler) { a.onNegotiation = fn }
}

// Assembler turns raw telnet bytes into text lines and negotiation
// replies.  State carries over between Feed calls, so a line, a CRLF
// pair, or an IAC sequence may be split across any number of reads.
//
// Every byte ends up in exactly one place: the text buffer, the
// in-flight command, or the subnegotiation payload.  The only bytes
// that vanish are the doubled IAC of an escaped 0xFF and line
// terminators.  Any command byte other than SB takes the following
// byte as its option, so IAC GA consumes one byte after it.
//
// An Assembler is not safe for concurrent use.
type Assembler struct {
	mode    mode
	command byte

	subOpt     byte
	subOptSet  bool
	subPayload []byte

	text   []byte
	sawCR  bool // last text byte was CR; a following LF belongs to it
	result FeedResult

	charset       *Charset
	onSubneg      SubnegotiationHandler
	onNegotiation func(Negotiation)
}

// NewAssembler returns an Assembler in data mode.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{charset: UTF8()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Feed classifies every byte of p and returns the lines and replies it
// completed.  An empty p is a no-op.
func (a *Assembler) Feed(p []byte) FeedResult {
	a.result = FeedResult{}
	for _, b := range p {
		a.step(b)
	}
	out := a.result
	a.result = FeedResult{}
	return out
}

// Pending reports whether an unterminated fragment is buffered.
func (a *Assembler) Pending() bool { return len(a.text) > 0 }

// FlushPendingLine returns the unterminated fragment, if any, and empties
// the buffer.  It is meant for end of stream only.
func (a *Assembler) FlushPendingLine() (string, bool) {
	if len(a.text) == 0 {
		return "", false
	}
	line := a.charset.Decode(a.text)
	a.text = a.text[:0]
	return line, true
}

func (a *Assembler) step(b byte) {
	switch a.mode {
	case modeData:
		if b == IAC {
			a.mode = modeIAC
			return
		}
		a.appendText(b)

	case modeIAC:
		switch {
		case b == IAC:
			a.appendText(IAC)
			a.mode = modeData
		case b == SB:
			a.subOpt = 0
			a.subOptSet = false
			a.subPayload = a.subPayload[:0]
			a.mode = modeSubneg
		default:
			a.command = b
			a.mode = modeCommand
		}

	case modeCommand:
		a.negotiate(Negotiation{Command: a.command, Option: b})
		a.command = 0
		a.mode = modeData

	case modeSubneg:
		switch {
		case !a.subOptSet:
			a.subOpt = b
			a.subOptSet = true
		case b == IAC:
			a.mode = modeSubnegIAC
		default:
			a.subPayload = append(a.subPayload, b)
		}

	case modeSubnegIAC:
		if b == SE {
			if a.onSubneg != nil {
				a.onSubneg(a.subOpt, a.subPayload)
			}
			a.subOpt = 0
			a.subOptSet = false
			a.subPayload = a.subPayload[:0]
			a.mode = modeData
			return
		}
		// Not a terminator: the swallowed IAC and this byte are payload.
		a.subPayload = append(a.subPayload, IAC, b)
		a.mode = modeSubneg
	}
}

func (a *Assembler) negotiate(n Negotiation) {
	if a.onNegotiation != nil {
		a.onNegotiation(n)
	}
	if reply, ok := Refusal(n); ok {
		a.result.Replies = append(a.result.Replies, reply)
	}
}

// appendText adds one data byte, cutting a line on CR, LF or CRLF.
func (a *Assembler) appendText(b byte) {
	if a.sawCR {
		a.sawCR = false
		if b == '\n' {
			return
		}
	}
	switch b {
	case '\r':
		a.sawCR = true
		a.completeLine()
	case '\n':
		a.completeLine()
	default:
		a.text = append(a.text, b)
	}
}

func (a *Assembler) completeLine() {
	a.result.Lines = append(a.result.Lines, a.charset.Decode(a.text))
	a.text = a.text[:0]
}
