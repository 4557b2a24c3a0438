package mvar

const (
	Prefix = "{{"
	Suffix = "}}"
)

const (
	PrefixSize = len(Prefix)
	SuffixSize = len(Suffix)
)

// SystemPrefix marks system pseudo-variables such as {{$guid}}.
const SystemPrefix = "$"

type Var struct {
	Key         string
	Value       string
	Enabled     bool
	Description string
}
