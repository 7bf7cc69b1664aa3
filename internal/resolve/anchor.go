package resolve

import "strings"

// registerSeparator begins the marker line echoed between frame selection
// and the register dump. Everything before it is focus-switch chatter.
const registerSeparator = "======="

// Sentinel values of the anchor triple FixedPairAnchor searches for.
const (
	anchorHex = "0x80"
	anchorDec = "128"
)

// RegisterTriple is one line of a register dump: register name, raw hex
// value, and decimal rendering. Lines with any other field count (flag
// registers, wide vector registers) are not triples.
type RegisterTriple struct {
	Register string
	Hex      string
	Dec      string
}

// ParseRegisterTriple parses a single register dump line.
func ParseRegisterTriple(line string) (RegisterTriple, bool) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return RegisterTriple{}, false
	}
	return RegisterTriple{Register: fields[0], Hex: fields[1], Dec: fields[2]}, true
}

// ParseRegisterDump extracts register triples from a probe batch output,
// discarding everything up to and including the separator line.
func ParseRegisterDump(output string) []RegisterTriple {
	var triples []RegisterTriple
	inRegisters := false
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(line, registerSeparator) {
			inRegisters = true
			continue
		}
		if !inRegisters {
			continue
		}
		if triple, ok := ParseRegisterTriple(line); ok {
			triples = append(triples, triple)
		}
	}
	return triples
}

// AnchorStrategy locates a lock address within a register dump. A strategy
// encapsulates the calling-convention knowledge of where the primitive's
// address ends up when a lock call is interrupted mid-wait.
type AnchorStrategy interface {
	// FindLockAddress returns the lock address anchored in the triples,
	// or false when the dump carries no recognizable anchor.
	FindLockAddress(triples []RegisterTriple) (string, bool)
}

// FixedPairAnchor anchors on the sentinel triple whose hex value is 0x80
// and decimal value 128; the hex value of the next triple is taken as the
// lock address. This matches the register layout of a futex wait entered
// from pthread_mutex_lock on x86-64 glibc.
type FixedPairAnchor struct{}

// FindLockAddress implements AnchorStrategy.
func (FixedPairAnchor) FindLockAddress(triples []RegisterTriple) (string, bool) {
	anchored := false
	for _, triple := range triples {
		if anchored {
			return triple.Hex, true
		}
		if triple.Hex == anchorHex && triple.Dec == anchorDec {
			anchored = true
		}
	}
	return "", false
}

// AnchorChain tries each strategy in order and returns the first hit.
// Useful when a target may have been built against more than one libc or
// calling convention.
type AnchorChain []AnchorStrategy

// FindLockAddress implements AnchorStrategy.
func (c AnchorChain) FindLockAddress(triples []RegisterTriple) (string, bool) {
	for _, s := range c {
		if addr, ok := s.FindLockAddress(triples); ok {
			return addr, true
		}
	}
	return "", false
}
