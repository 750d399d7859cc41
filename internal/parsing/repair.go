package parsing

import "strings"

// maxRepairCuts bounds how many truncation points are tried
const maxRepairCuts = 32

type scanState struct {
	stack    []byte
	inString bool
}

// closers returns the text that closes every open container of the state
func (s scanState) closers() string {
	var sb strings.Builder
	if s.inString {
		sb.WriteByte('"')
	}
	for i := len(s.stack) - 1; i >= 0; i-- {
		if s.stack[i] == '{' {
			sb.WriteByte('}')
		} else {
			sb.WriteByte(']')
		}
	}
	return sb.String()
}

type cut struct {
	pos   int
	state scanState
}

// repairCandidates returns closed variants of a truncated JSON text, longest
// first. The first closes the whole text; the rest cut back to the end of an
// earlier complete element. Text with a closer that does not match its opener
// yields no candidates.
func repairCandidates(text string) []string {
	var (
		state   scanState
		escaped bool
		cuts    []cut
	)

	snapshot := func(pos int) {
		stack := make([]byte, len(state.stack))
		copy(stack, state.stack)
		cuts = append(cuts, cut{pos: pos, state: scanState{stack: stack}})
	}

	for i := 0; i < len(text); i++ {
		ch := text[i]
		if state.inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				state.inString = false
			}
			continue
		}

		switch ch {
		case '"':
			state.inString = true
		case '{', '[':
			state.stack = append(state.stack, ch)
		case '}', ']':
			if len(state.stack) == 0 {
				return nil
			}
			open := state.stack[len(state.stack)-1]
			if (ch == '}' && open != '{') || (ch == ']' && open != '[') {
				return nil
			}
			state.stack = state.stack[:len(state.stack)-1]
			if len(state.stack) == 0 {
				// Complete object; anything after it is trailing prose
				return []string{text[:i+1]}
			}
			snapshot(i + 1)
		case ',':
			snapshot(i)
		}
	}

	// A dangling escape leaves the string open on a backslash
	full := text
	if escaped {
		full = full[:len(full)-1]
	}
	candidates := []string{strings.TrimRight(full, " \t\r\n") + state.closers()}

	for i := len(cuts) - 1; i >= 0 && len(cuts)-i <= maxRepairCuts; i-- {
		c := cuts[i]
		candidates = append(candidates, text[:c.pos]+c.state.closers())
	}
	return candidates
}
