package declarative

import "sync"

// Budget is the accumulator of the declarative rules emitted into a rule-set.
// It is shared between the conversions of all the filters of the rule-set, so
// the limits are global to the rule-set.  It is safe for concurrent use.
type Budget struct {
	// mu protects rules and regexp.
	mu *sync.Mutex

	rules  int
	regexp int

	maxRules  int
	maxRegexp int
}

// NewBudget returns a new *Budget allowing at most maxRules declarative rules,
// maxRegexp of which may be regexp ones.
func NewBudget(maxRules, maxRegexp int) (b *Budget) {
	return &Budget{
		mu:        &sync.Mutex{},
		maxRules:  maxRules,
		maxRegexp: maxRegexp,
	}
}

// Reserve reserves place for n declarative rules, regexp of which are regexp
// ones.  The rules of a single text rule must be reserved at once.  It returns
// false if any of the limits would be exceeded, in which case nothing is
// reserved.
func (b *Budget) Reserve(n, regexp int) (ok bool) {
	return b.reserve(n, regexp) == nil
}

// reserve is the implementation of [Budget.Reserve] that returns the reason of
// the failure.
func (b *Budget) reserve(n, regexp int) (err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.rules+n > b.maxRules {
		return ErrBudgetExhausted
	}

	if b.regexp+regexp > b.maxRegexp {
		return ErrRegexpBudgetExhausted
	}

	b.rules += n
	b.regexp += regexp

	return nil
}

// Exhausted returns true if no more declarative rules can be reserved.
func (b *Budget) Exhausted() (ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.rules >= b.maxRules
}

// Used returns the numbers of the reserved declarative rules.
func (b *Budget) Used() (rules, regexp int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.rules, b.regexp
}
