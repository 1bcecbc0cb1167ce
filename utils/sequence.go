package utils

import (
	"strconv"
	"strings"
)

// ParseSequenceSuffix returns the trailing integer of a number issued under prefix,
// e.g. 12 for ("INS-26-0012", "INS-26-").
func ParseSequenceSuffix(number, prefix string) (int, bool) {
	if !strings.HasPrefix(number, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(number[len(prefix):])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// HighestSequence picks the number with the largest suffix under prefix, or "".
func HighestSequence(numbers []string, prefix string) string {
	best, bestSeq := "", -1
	for _, num := range numbers {
		seq, ok := ParseSequenceSuffix(num, prefix)
		if ok && seq > bestSeq {
			best, bestSeq = num, seq
		}
	}
	return best
}
