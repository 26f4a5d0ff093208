package email

import (
	"strings"
	"unicode/utf8"
)

// RedactEmail keeps the first character of the local part and the domain:
// "john@gmail.com" becomes "j***@gmail.com". Input without "@" is fully masked.
func RedactEmail(addr string) string {
	if addr == "" {
		return ""
	}
	local, domain, ok := strings.Cut(addr, "@")
	if !ok {
		return "***"
	}
	if local == "" {
		return "***@" + domain
	}
	_, size := utf8.DecodeRuneInString(local)
	return local[:size] + "***@" + domain
}
