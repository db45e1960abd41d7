package normalize

import "strings"

const unknownAccount = "Unknown"

// DeriveAccountName reads the owning account out of a deal name written as
// "Account: Deal description". Without a delimiter the first word is used.
func DeriveAccountName(dealName string) string {
	name := strings.TrimSpace(dealName)
	if name == "" {
		return unknownAccount
	}
	if i := strings.Index(name, ":"); i > 0 {
		if acct := strings.TrimSpace(name[:i]); acct != "" {
			return acct
		}
	}
	if fields := strings.Fields(name); len(fields) > 0 {
		return fields[0]
	}
	return unknownAccount
}
