// Package util has leveled debug printing and small integer helpers.
//
// Level 0 messages are consistency warnings (counter/bitmap divergence,
// double frees) and always print; higher levels trace operations.
package util

import "log"

const Debug uint64 = 1

func DPrintf(level uint64, format string, a ...interface{}) {
	if level <= Debug {
		log.Printf(format, a...)
	}
}

func RoundUp(n uint64, sz uint64) uint64 {
	return (n + sz - 1) / sz
}

func Min(n uint64, m uint64) uint64 {
	if n < m {
		return n
	} else {
		return m
	}
}

func SumOverflows(a uint64, b uint64) bool {
	return a+b < a
}
