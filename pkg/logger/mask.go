package logx

import "regexp"

var (
	reDSNUserPass = regexp.MustCompile(`(?i)(://)([^:/@]+):([^@]+)(@)`)
	reDSNPassword = regexp.MustCompile(`(?i)(password=)([^\s&;]+)`)
)

// MaskDSN hides credentials embedded in a connection string before it is logged.
func MaskDSN(dsn string) string {
	out := reDSNUserPass.ReplaceAllString(dsn, "$1*:*$4")
	return reDSNPassword.ReplaceAllString(out, "$1***")
}
