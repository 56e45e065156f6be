package hostname

import (
	"regexp"
	"strings"

	"github.com/qubic/go-ledger-simulator/business/rng"
)

const (
	DefaultMaxLength = 10
	DefaultMinLength = 4
	// MaxLabelLength is the DNS limit for a single label.
	MaxLabelLength = 63
)

const alphabet = "abcdefghijklmnopqrstuvwxyz"

var topLevelDomains = []string{"com", "net", "org", "io", "info"}

// Pattern matches syntactically valid DNS host names with at least two labels.
var Pattern = regexp.MustCompile(`^(?i:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?)(?:\.(?i:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?))*\.(?i:[a-z]{2,63})$`)

func TopLevelDomains() []string {
	return append([]string(nil), topLevelDomains...)
}

// Random generates a host name with labels between DefaultMinLength and DefaultMaxLength characters.
func Random(src rng.Source) string {
	return Generate(src, DefaultMaxLength, DefaultMinLength)
}

// Generate builds one to three random lowercase labels, each between minLength and
// maxLength characters long, followed by a random top level domain. Both bounds are
// clamped to [1, MaxLabelLength].
func Generate(src rng.Source, maxLength, minLength int) string {
	if maxLength < minLength {
		minLength, maxLength = maxLength, minLength
	}
	minLength = clamp(minLength, 1, MaxLabelLength)
	maxLength = clamp(maxLength, 1, MaxLabelLength)

	tld := rng.Pick(src, topLevelDomains)
	nrLabels := rng.Between(src, 1, 4)

	labels := make([]string, 0, nrLabels+1)
	for i := 0; i < nrLabels; i++ {
		labels = append(labels, randomLabel(src, rng.Between(src, minLength, maxLength+1)))
	}
	labels = append(labels, tld)

	return strings.Join(labels, ".")
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func randomLabel(src rng.Source, length int) string {
	var sb strings.Builder
	sb.Grow(length)
	for i := 0; i < length; i++ {
		sb.WriteByte(alphabet[src.Uniform(len(alphabet))])
	}
	return sb.String()
}
