package prompt

import "strings"

// Classifier guesses which mode the model will pick, for logs and metrics.
// It never changes the payload.
type Classifier struct {
	names    []string
	keywords [][]string // lowercased, parallel to names
	fallback string
}

func NewClassifier(p Profile) *Classifier {
	c := &Classifier{fallback: p.Fallback.Name}
	if c.fallback == "" {
		c.fallback = "default"
	}
	for _, m := range p.Modes {
		kws := make([]string, len(m.Keywords))
		for i, kw := range m.Keywords {
			kws[i] = strings.ToLower(kw)
		}
		c.names = append(c.names, m.Name)
		c.keywords = append(c.keywords, kws)
	}
	return c
}

// Detect returns the mode with the most keyword hits. Ties go to the mode
// listed first; no hits yields the fallback.
func (c *Classifier) Detect(text string) string {
	lower := strings.ToLower(text)

	best, bestScore := c.fallback, 0
	for i, kws := range c.keywords {
		score := 0
		for _, kw := range kws {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = c.names[i], score
		}
	}
	return best
}
