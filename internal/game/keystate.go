package game

// FoldKeyState merges one incoming mark into a letter's best-known mark.
// Marks only ever upgrade: correct beats present, present beats absent, and
// absent is recorded only while the letter is still unset. Empty (or the
// zero value) as current means unset; an empty incoming mark is ignored.
func FoldKeyState(current, incoming Mark) Mark {
	switch incoming {
	case MarkCorrect:
		return MarkCorrect
	case MarkPresent:
		if current == MarkCorrect {
			return MarkCorrect
		}
		return MarkPresent
	case MarkAbsent:
		if current == "" || current == MarkEmpty {
			return MarkAbsent
		}
		return current
	default:
		return current
	}
}

// MergeKeyStates folds an evaluated row into a copy of current.
func MergeKeyStates(current KeyStates, row Row) KeyStates {
	out := make(KeyStates, len(current)+Cols)
	for k, v := range current {
		out[k] = v
	}
	for _, c := range row {
		if c.Letter == "" || c.Status == MarkEmpty {
			continue
		}
		if next := FoldKeyState(out[c.Letter], c.Status); next != MarkEmpty && next != "" {
			out[c.Letter] = next
		}
	}
	return out
}
