package route

// RuleKind enumerates the payload transformations a route can apply.
// The set is closed; Transform switches exhaustively over it.
type RuleKind int

const (
	Copy RuleKind = iota
	Omit
	InvertBoolean
	LiteralString
	LiteralBytes
)

func (k RuleKind) String() string {
	if k < Copy || k > LiteralBytes {
		return "unknown"
	}
	return [...]string{"copy", "omit", "invertBoolean", "literalString", "literalBytes"}[k]
}

// Rule is a payload transform. The zero value is Copy, which is also the
// default when a topic entry in the config omits the payload field.
type Rule struct {
	Kind    RuleKind
	Literal []byte // set for LiteralString and LiteralBytes
}

// Entry is one configured route, in config file order.
type Entry struct {
	From string
	To   string
	Rule Rule
}

// Route is the destination side of a table entry.
type Route struct {
	To   string
	Rule Rule
}

// Table maps a source topic to its route. It is built once at startup and
// never written afterwards, so lookups need no locking.
type Table map[string]Route
