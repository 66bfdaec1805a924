package pretokenize

// Expand rewrites possessive quantifiers (X*+, X++, X?+, X{n,m}+) into the
// equivalent atomic groups (?>X*) understood by regexp2. Everything else is
// copied through unchanged, including malformed input, which is left for the
// regex compiler to reject.
func Expand(pattern string) string {
	src := []rune(pattern)
	out := make([]rune, 0, len(src)+8)

	atom := -1 // start in out of the last quantifiable item, -1 if none
	var groups []int

	for i := 0; i < len(src); {
		c := src[i]
		switch c {
		case '\\':
			n := escapeLen(src, i)
			atom = len(out)
			out = append(out, src[i:i+n]...)
			i += n

		case '[':
			n := classLen(src, i)
			atom = len(out)
			out = append(out, src[i:i+n]...)
			i += n

		case '(':
			groups = append(groups, len(out))
			out = append(out, c)
			i++
			atom = -1

		case ')':
			atom = -1
			if len(groups) > 0 {
				atom = groups[len(groups)-1]
				groups = groups[:len(groups)-1]
			}
			out = append(out, c)
			i++

		case '|':
			out = append(out, c)
			i++
			atom = -1

		case '*', '+', '?', '{':
			n := quantifierLen(src, i)
			if n == 0 || atom < 0 {
				if c == '{' {
					atom = len(out)
				} else {
					atom = -1
				}
				out = append(out, c)
				i++
				continue
			}

			q := src[i : i+n]
			i += n
			switch {
			case i < len(src) && src[i] == '+':
				body := append([]rune(nil), out[atom:]...)
				out = append(out[:atom], '(', '?', '>')
				out = append(out, body...)
				out = append(out, q...)
				out = append(out, ')')
				i++
			case i < len(src) && src[i] == '?':
				out = append(out, q...)
				out = append(out, '?')
				i++
			default:
				out = append(out, q...)
			}
			atom = -1

		default:
			atom = len(out)
			out = append(out, c)
			i++
		}
	}

	return string(out)
}

// escapeLen returns the length of the escape sequence starting at src[i] == '\\'.
func escapeLen(src []rune, i int) int {
	if i+1 >= len(src) {
		return 1
	}

	switch src[i+1] {
	case 'p', 'P':
		if i+2 < len(src) && src[i+2] == '{' {
			return untilClose(src, i, i+3, '}')
		}
		return min(3, len(src)-i)
	case 'x':
		if i+2 < len(src) && src[i+2] == '{' {
			return untilClose(src, i, i+3, '}')
		}
		return min(4, len(src)-i)
	case 'u':
		return min(6, len(src)-i)
	case 'k':
		if i+2 < len(src) && src[i+2] == '<' {
			return untilClose(src, i, i+3, '>')
		}
	}
	return 2
}

// classLen returns the length of the character class starting at src[i] == '['.
func classLen(src []rune, i int) int {
	j := i + 1
	if j < len(src) && src[j] == '^' {
		j++
	}
	if j < len(src) && src[j] == ']' {
		j++
	}

	depth := 1
	for j < len(src) {
		switch src[j] {
		case '\\':
			j += 2
			continue
		case '[':
			// .NET class subtraction: [a-z-[aeiou]]
			if src[j-1] == '-' {
				depth++
			}
		case ']':
			depth--
			if depth == 0 {
				return j + 1 - i
			}
		}
		j++
	}
	return len(src) - i
}

// quantifierLen returns the length of the quantifier at src[i], or 0 when
// src[i] == '{' does not start a {n}, {n,} or {n,m} quantifier.
func quantifierLen(src []rune, i int) int {
	if src[i] != '{' {
		return 1
	}

	j := i + 1
	digits := 0
	for j < len(src) && src[j] >= '0' && src[j] <= '9' {
		j++
		digits++
	}
	if digits == 0 {
		return 0
	}
	if j < len(src) && src[j] == ',' {
		j++
		for j < len(src) && src[j] >= '0' && src[j] <= '9' {
			j++
		}
	}
	if j < len(src) && src[j] == '}' {
		return j + 1 - i
	}
	return 0
}

func untilClose(src []rune, start, from int, closer rune) int {
	for j := from; j < len(src); j++ {
		if src[j] == closer {
			return j + 1 - start
		}
	}
	return len(src) - start
}
