package stabilizer

// DefaultRejectCount is how many confusable predictions in the window reject
// a candidate when a rule does not set its own count.
const DefaultRejectCount = 2

// ConfusionRule lists the labels a candidate is often mistaken for.
type ConfusionRule struct {
	Confusables []string `yaml:"confusables" json:"confusables"`
	RejectCount int      `yaml:"reject_count" json:"reject_count"`
}

// ConfusionTable maps a candidate label to its confusion rule.
type ConfusionTable map[string]ConfusionRule

// DefaultConfusions returns the built-in table: A/E, C/D and C/O are the
// handshapes most often swapped by the classifier.
func DefaultConfusions() ConfusionTable {
	return ConfusionTable{
		"A": {Confusables: []string{"E"}, RejectCount: DefaultRejectCount},
		"E": {Confusables: []string{"A"}, RejectCount: DefaultRejectCount},
		"C": {Confusables: []string{"D", "O"}, RejectCount: DefaultRejectCount},
		"D": {Confusables: []string{"C"}, RejectCount: DefaultRejectCount},
		"O": {Confusables: []string{"C"}, RejectCount: DefaultRejectCount},
	}
}

// Rejects reports whether candidate should be rejected given the window
// contents, and which confusable label caused it.
func (t ConfusionTable) Rejects(candidate string, w *Window) (string, bool) {
	rule, ok := t[candidate]
	if !ok {
		return "", false
	}

	threshold := rule.RejectCount
	if threshold <= 0 {
		threshold = DefaultRejectCount
	}

	for _, other := range rule.Confusables {
		if w.Count(other) >= threshold {
			return other, true
		}
	}
	return "", false
}
