package tool

import (
	"crypto/rand"
	"fmt"
	mathrand "math/rand"

	"github.com/google/uuid"
)

var adjectives = []string{
	"Amber",
	"Bright",
	"Calm",
	"Cedar",
	"Clever",
	"Copper",
	"Cozy",
	"Golden",
	"Hidden",
	"Little",
	"Mellow",
	"Quiet",
	"Rustic",
	"Silver",
	"Sunny",
	"Warm",
}

var nouns = []string{
	"Attic",
	"Beacon",
	"Cabin",
	"Den",
	"Garden",
	"Harbor",
	"Hearth",
	"Lantern",
	"Loft",
	"Meadow",
	"Nest",
	"Orchard",
	"Porch",
	"Study",
	"Terrace",
	"Willow",
}

// NameGenerator returns a friendly default hub name, e.g. "Warm Hearth".
func NameGenerator() string {
	adjective := adjectives[mathrand.Intn(len(adjectives))]
	noun := nouns[mathrand.Intn(len(nouns))]
	return fmt.Sprintf("%s %s", adjective, noun)
}

func GenerateRandomUUID() string {
	return uuid.New().String()
}

// RandomBytes fills and returns n bytes from crypto/rand. Panics only if the
// system entropy source is broken, which is not a recoverable state.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return b
}
