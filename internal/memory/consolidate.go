package memory

import (
	"fmt"
	"strings"
)

// #region log

// Log is the parsed form of the learnings blob: a version counter, optional
// free-form commentary preceding the first heading, and the five fixed
// sections as ordered entry lists.
type Log struct {
	Version  int
	Preamble []string
	Sections [sectionCount][]string
}

// ParseLog parses a rendered learnings blob. Unrecognized text before the
// first heading becomes the preamble; an empty blob parses to a zero log.
func ParseLog(blob string) Log {
	var l Log
	current := -1
	for _, line := range strings.Split(blob, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "# LEARNINGS v"):
			fmt.Sscanf(trimmed, "# LEARNINGS v%d", &l.Version)
		case strings.HasPrefix(trimmed, "## "):
			heading := strings.TrimPrefix(trimmed, "## ")
			current = -1
			for i, h := range sectionHeadings {
				if heading == h {
					current = i
					break
				}
			}
		case strings.HasPrefix(trimmed, "- "):
			entry := strings.TrimPrefix(trimmed, "- ")
			if current >= 0 {
				l.Sections[current] = append(l.Sections[current], entry)
			} else {
				l.Preamble = append(l.Preamble, entry)
			}
		case trimmed != "":
			if current < 0 {
				l.Preamble = append(l.Preamble, trimmed)
			} else {
				// Continuation lines attach to the previous entry.
				sec := l.Sections[current]
				if len(sec) > 0 {
					sec[len(sec)-1] += " " + trimmed
				} else {
					l.Sections[current] = append(sec, trimmed)
				}
			}
		}
	}
	return l
}

// Render writes the log back out in its canonical shape.
func (l Log) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# LEARNINGS v%d\n", l.Version)
	for _, p := range l.Preamble {
		fmt.Fprintf(&b, "%s\n", p)
	}
	for i := Section(0); i < sectionCount; i++ {
		fmt.Fprintf(&b, "\n## %s\n", i.Heading())
		for _, entry := range l.Sections[i] {
			fmt.Fprintf(&b, "- %s\n", entry)
		}
	}
	return b.String()
}

// #endregion log

// #region consolidator

// Consolidator folds new iteration insights into the cumulative learnings
// log. The log is the only persistent cross-iteration understanding artifact
// besides the ledger, so concrete dataset-specific detail is preserved ahead
// of everything else.
type Consolidator struct {
	config Config
}

// NewConsolidator creates a consolidator with the given configuration.
func NewConsolidator(config Config) *Consolidator {
	return &Consolidator{config: config}
}

// Consolidate merges insights into the existing blob and returns the
// replacement. Folding an empty Insights into a within-budget log returns
// the blob byte-for-byte unchanged.
func (c *Consolidator) Consolidate(existing string, insights Insights, budget int) string {
	if budget <= 0 {
		budget = c.config.SizeBudget
	}
	if insights.Empty() && len(existing) <= budget {
		return existing
	}

	l := ParseLog(existing)
	l.Version++

	add := [sectionCount][]string{
		SectionPatterns:   insights.Patterns,
		SectionStrategies: insights.Strategies,
		SectionFailures:   insights.Failures,
		SectionLog:        insights.LogEntries,
		SectionDirections: insights.Directions,
	}
	for i := Section(0); i < sectionCount; i++ {
		l.Sections[i] = mergeEntries(l.Sections[i], add[i])
	}

	out := l.Render()
	if len(out) <= budget {
		return out
	}
	return c.condense(l, budget)
}

// #endregion consolidator

// #region condense

// condense shrinks an over-budget log without discarding dataset-specific
// findings. Passes run cheapest-loss first: generalized commentary goes
// before anything else, then superseded entries, then the middle of the
// experiment log collapses into a count. The budget is soft: when every
// remaining entry is a concrete finding, the log is allowed to exceed it.
func (c *Consolidator) condense(l Log, budget int) string {
	// Pass 1: drop free-form commentary.
	l.Preamble = nil
	if out := l.Render(); len(out) <= budget {
		return out
	}

	// Pass 2: drop entries fully contained in a longer entry of the same
	// section (superseded observations).
	for i := Section(0); i < sectionCount; i++ {
		l.Sections[i] = dropSuperseded(l.Sections[i])
	}
	if out := l.Render(); len(out) <= budget {
		return out
	}

	// Pass 3: collapse the middle of the experiment log.
	keep := c.config.KeepRecent
	if entries := l.Sections[SectionLog]; len(entries) > 2*keep+1 {
		collapsed := len(entries) - 2*keep
		mid := fmt.Sprintf("(%d earlier iterations condensed)", collapsed)
		compacted := make([]string, 0, 2*keep+1)
		compacted = append(compacted, entries[:keep]...)
		compacted = append(compacted, mid)
		compacted = append(compacted, entries[len(entries)-keep:]...)
		l.Sections[SectionLog] = compacted
	}
	if out := l.Render(); len(out) <= budget {
		return out
	}

	// Pass 4: keep only the most recent research directions.
	if entries := l.Sections[SectionDirections]; len(entries) > c.config.KeepRecent {
		l.Sections[SectionDirections] = entries[len(entries)-c.config.KeepRecent:]
	}

	return l.Render()
}

// #endregion condense

// #region merge

// mergeEntries appends new entries, skipping exact duplicates of existing
// ones (whitespace- and case-insensitive).
func mergeEntries(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, e := range existing {
		seen[normalize(e)] = true
	}
	out := existing
	for _, e := range incoming {
		e = strings.TrimSpace(e)
		if e == "" || seen[normalize(e)] {
			continue
		}
		seen[normalize(e)] = true
		out = append(out, e)
	}
	return out
}

// dropSuperseded removes entries that appear verbatim inside a longer entry
// of the same section.
func dropSuperseded(entries []string) []string {
	out := make([]string, 0, len(entries))
	for i, e := range entries {
		contained := false
		for j, other := range entries {
			if i == j || len(other) <= len(e) {
				continue
			}
			if strings.Contains(normalize(other), normalize(e)) {
				contained = true
				break
			}
		}
		if !contained {
			out = append(out, e)
		}
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// #endregion merge
