package normalize

// findJSONCandidates scans the input for top-level JSON object candidates,
// handling nested braces and string escaping to identify boundaries.
//
// Byte-level state machine rather than regex: ASCII delimiters ({, }, ", \)
// never appear inside UTF-8 multi-byte sequences, so iterating bytes is safe
// even for the generator's Chinese prose.
func findJSONCandidates(s string) []string {
	var candidates []string
	var depth int
	start := -1
	var inString bool
	var escape bool

	for i := 0; i < len(s); i++ {
		b := s[i]

		if escape {
			escape = false
			continue
		}

		if inString {
			if b == '\\' {
				escape = true
			} else if b == '"' {
				inString = false
			}
			continue
		}

		if b == '"' {
			inString = true
			continue
		}

		if b == '{' {
			if depth == 0 {
				start = i
			}
			depth++
		} else if b == '}' {
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					candidates = append(candidates, s[start:i+1])
					start = -1
				}
			}
		}
	}

	return candidates
}
