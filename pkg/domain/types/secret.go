package types

// Secret holds a credential value. The logger is configured to redact values of
// this type, so a Secret can be passed to slog without leaking.
type Secret string

// Unsafe returns the raw credential.
func (x Secret) Unsafe() string {
	return string(x)
}

// String implements fmt.Stringer without revealing the value.
func (x Secret) String() string {
	if x == "" {
		return ""
	}
	return "[REDACTED]"
}
