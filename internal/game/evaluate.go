package game

import "strings"

// Evaluate scores guess against target with the two-pass algorithm.
//
// Pass 1 marks exact matches correct and counts the target letters that were
// not matched. Pass 2 walks the remaining guess positions left to right: a
// letter with an unclaimed count left is present (and consumes one count),
// otherwise it is absent. Exact matches therefore always win over displaced
// ones, and surplus duplicates in the guess are absent.
//
// Both words are uppercased first. Positions past the shorter word stay empty.
func Evaluate(guess, target string) Row {
	guess = strings.ToUpper(guess)
	target = strings.ToUpper(target)

	n := min(len(guess), len(target), Cols)
	res := emptyRow()

	// Letter counts of the target positions not claimed by pass 1.
	var counts [26]int

	for i := 0; i < n; i++ {
		res[i].Letter = guess[i : i+1]
		if guess[i] == target[i] {
			res[i].Status = MarkCorrect
			continue
		}
		if j := idx(target[i]); j >= 0 {
			counts[j]++
		}
	}
	for i := 0; i < n; i++ {
		if res[i].Status == MarkCorrect {
			continue
		}
		if j := idx(guess[i]); j >= 0 && counts[j] > 0 {
			res[i].Status = MarkPresent
			counts[j]--
		} else {
			res[i].Status = MarkAbsent
		}
	}
	return res
}

// idx maps 'A'..'Z' to 0..25 and anything else to -1.
func idx(b byte) int {
	if b < 'A' || b > 'Z' {
		return -1
	}
	return int(b - 'A')
}
