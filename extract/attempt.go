package extract

// AttemptKind tags the result of one strategy run.
type AttemptKind int

const (
	// AttemptOK means the strategy produced non-empty text.
	AttemptOK AttemptKind = iota
	// AttemptEmpty means the strategy ran but found nothing.
	AttemptEmpty
	// AttemptFailed means the strategy errored inside its boundary.
	AttemptFailed
)

// Attempt is the ephemeral record of one strategy run. The pipeline folds
// attempts over the ordered strategy list instead of nesting failure
// handling per strategy.
type Attempt struct {
	Strategy string
	Kind     AttemptKind
	Text     string
	Err      error
}

// Len returns the text length of the attempt.
func (a Attempt) Len() int { return len(a.Text) }

func ok(strategy, text string) Attempt {
	return Attempt{Strategy: strategy, Kind: AttemptOK, Text: text}
}

func empty(strategy string) Attempt {
	return Attempt{Strategy: strategy, Kind: AttemptEmpty}
}

func failed(strategy string, err error) Attempt {
	return Attempt{Strategy: strategy, Kind: AttemptFailed, Err: err}
}

// accumulator tracks the best attempt seen so far for one request. It is
// explicit per-request state threaded through the pipeline run, never
// shared across requests.
type accumulator struct {
	attempts []Attempt
	best     Attempt
}

// record adds an attempt and keeps the longest non-empty text seen. An
// equal-length later attempt never displaces an earlier one.
func (acc *accumulator) record(a Attempt) {
	acc.attempts = append(acc.attempts, a)
	if a.Kind == AttemptOK && a.Len() > acc.best.Len() {
		acc.best = a
	}
}
