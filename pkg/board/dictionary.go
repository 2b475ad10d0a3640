package board

import "sort"

// dictionarySizes lists the predefined ArUco dictionaries by name.
var dictionarySizes = map[string]int{
	"4x4_50":         50,
	"4x4_100":        100,
	"4x4_250":        250,
	"4x4_1000":       1000,
	"5x5_50":         50,
	"5x5_100":        100,
	"5x5_250":        250,
	"5x5_1000":       1000,
	"6x6_50":         50,
	"6x6_100":        100,
	"6x6_250":        250,
	"6x6_1000":       1000,
	"7x7_50":         50,
	"7x7_100":        100,
	"7x7_250":        250,
	"7x7_1000":       1000,
	"aruco_original": 1024,
}

// DictionarySize returns the number of markers in a predefined dictionary.
func DictionarySize(name string) (int, bool) {
	n, ok := dictionarySizes[name]
	return n, ok
}

// DictionaryNames returns the known dictionary names, sorted.
func DictionaryNames() []string {
	names := make([]string, 0, len(dictionarySizes))
	for k := range dictionarySizes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
