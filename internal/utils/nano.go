package utils

import gonanoid "github.com/matoous/go-nanoid/v2"

var (
	// NanoidSize is the length of entity ids. Storage key segments use shorter ids.
	NanoidSize     = 21
	nanoidAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

func NanoID() string {
	return NanoIDSize(NanoidSize)
}

func NanoIDSize(size int) string {
	if size <= 0 {
		size = NanoidSize
	}

	return gonanoid.MustGenerate(nanoidAlphabet, size)
}

// NanoIDs returns n fresh ids of the given size.
func NanoIDs(n, size int) []string {
	if n < 0 {
		n = 0
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, NanoIDSize(size))
	}
	return out
}
