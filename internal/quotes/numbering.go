package quotes

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Quote numbers follow J-{YY}-{MM}{SEQ}, with SEQ zero-padded to three digits
// inside a year-month bucket. Versions append -V{n} for n >= 2; the base
// number is the part before that suffix.

var versionSuffixRe = regexp.MustCompile(`-V\d+$`)

// NumberPrefix derives the bucket prefix for the given date, e.g. "J-25-06".
func NumberPrefix(t time.Time) string {
	return fmt.Sprintf("J-%s-%s", t.Format("06"), t.Format("01"))
}

// FormatNumber renders prefix plus sequence. Sequences beyond 999 use their
// natural decimal representation, never truncated.
func FormatNumber(prefix string, seq int64) string {
	if seq < 1000 {
		return fmt.Sprintf("%s%03d", prefix, seq)
	}
	return fmt.Sprintf("%s%d", prefix, seq)
}

// BaseNumber strips a trailing -V{n} suffix, if any.
func BaseNumber(number string) string {
	return versionSuffixRe.ReplaceAllString(number, "")
}

// VersionedNumber derives the number for the given version, replacing any
// existing version suffix rather than stacking a second one.
func VersionedNumber(number string, version int) string {
	return fmt.Sprintf("%s-V%d", BaseNumber(number), version)
}

// SeqFromNumber extracts the numeric sequence from a quote number belonging
// to the given bucket. It reports false for numbers outside the bucket or
// with an unparsable sequence.
func SeqFromNumber(number, prefix string) (int64, bool) {
	if !strings.HasPrefix(number, prefix) {
		return 0, false
	}
	rest := BaseNumber(strings.TrimPrefix(number, prefix))
	seq, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || seq <= 0 {
		return 0, false
	}
	return seq, true
}
