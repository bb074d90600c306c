package restriction

import (
	"strconv"
	"strings"
)

// Kind is the broad category of a restriction display code.
type Kind string

const (
	KindPermit  Kind = "PERMIT"
	KindLoading Kind = "LOADING"
	KindFree    Kind = "FREE"
	KindMetered Kind = "METERED"
	KindLimited Kind = "LIMITED"
	KindUnknown Kind = "UNKNOWN"
)

// ParseCode maps a restriction display code to an allowed-minutes value and a
// kind. ok reports whether minutes could be determined; permit codes carry no
// minutes at all. Tested in precedence order:
//
//	"PP" / contains "PERMIT"  -> PERMIT, no minutes
//	"LZ30"                    -> LOADING, trailing integer
//	"FP15" / "FP2P"           -> FREE, raw minutes or digit*60
//	"MP2P"                    -> METERED, digit*60
//	"1P".."9P"                -> LIMITED, digit*60
//	anything else             -> UNKNOWN, trailing digits if any
func ParseCode(code string) (minutes int, ok bool, kind Kind) {
	u := strings.ToUpper(strings.TrimSpace(code))
	if u == "" {
		return 0, false, KindUnknown
	}

	if strings.Contains(u, "PERMIT") || u == "PP" {
		return 0, false, KindPermit
	}

	if strings.HasPrefix(u, "LZ") {
		if n, err := strconv.Atoi(u[2:]); err == nil {
			return n, true, KindLoading
		}
		return 0, false, KindLoading
	}

	if strings.HasPrefix(u, "FP") {
		// FP2P means two free hours; FP15 means 15 free minutes.
		if strings.HasSuffix(u, "P") && len(u) >= 3 && isDigit(u[2]) {
			return int(u[2]-'0') * 60, true, KindFree
		}
		if n, found := trailingDigits(u); found {
			return n, true, KindFree
		}
		return 0, false, KindFree
	}

	if strings.HasPrefix(u, "MP") && strings.HasSuffix(u, "P") && len(u) >= 4 && isDigit(u[2]) {
		return int(u[2]-'0') * 60, true, KindMetered
	}

	if strings.HasSuffix(u, "P") && isDigit(u[0]) {
		return int(u[0]-'0') * 60, true, KindLimited
	}

	if n, found := trailingDigits(u); found {
		return n, true, KindUnknown
	}
	return 0, false, KindUnknown
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// trailingDigits collects every digit in the code and reads them as minutes.
func trailingDigits(s string) (int, bool) {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if isDigit(s[i]) {
			sb.WriteByte(s[i])
		}
	}
	if sb.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(sb.String())
	if err != nil {
		return 0, false
	}
	return n, true
}
