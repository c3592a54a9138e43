package relay

// Operators is the configured operator set. The first id is the primary
// operator, the one submissions are delivered to.
type Operators []int64

// Has reports whether id is an operator.
func (o Operators) Has(id int64) bool {
	for _, op := range o {
		if op == id {
			return true
		}
	}
	return false
}

// Primary returns the delivery target, or false when none is configured.
func (o Operators) Primary() (int64, bool) {
	if len(o) == 0 {
		return 0, false
	}
	return o[0], true
}
