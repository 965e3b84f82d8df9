package registration

import (
	"github.com/hearthlab/hearth-hub-go/tool"
)

const (
	// CodeLength at 8 symbols over a 32-character alphabet gives 40 bits of
	// entropy, sparse enough that guessing within the 24h window is impractical.
	CodeLength = 8

	// codeAlphabet drops 0/O/1/I so operators can read codes out loud.
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// generateCode returns a random human-typable registration code.
func generateCode() string {
	raw := tool.RandomBytes(CodeLength)
	buf := make([]byte, CodeLength)
	for i, b := range raw {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}
