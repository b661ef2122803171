package memory

// #region sections

// Section names the fixed structure every learnings log is organized under.
// Downstream prompt construction relies on these headings being present in
// this order.
type Section int

const (
	SectionPatterns Section = iota
	SectionStrategies
	SectionFailures
	SectionLog
	SectionDirections
	sectionCount
)

var sectionHeadings = [sectionCount]string{
	"DATASET PATTERNS & CHARACTERISTICS",
	"EFFECTIVE TASK-SPECIFIC STRATEGIES",
	"COMMON FAILURE MODES ON THIS DATASET",
	"EXPERIMENT LOG & FINDINGS",
	"NEXT RESEARCH DIRECTIONS",
}

// Heading returns the canonical heading text for the section.
func (s Section) Heading() string {
	return sectionHeadings[s]
}

// #endregion sections

// #region insights

// Insights is the structured knowledge extracted from one iteration's batch
// results, ready to be folded into the cumulative log.
type Insights struct {
	Patterns   []string
	Strategies []string
	Failures   []string
	LogEntries []string
	Directions []string
}

// Empty reports whether there is nothing to fold in.
func (in Insights) Empty() bool {
	return len(in.Patterns) == 0 && len(in.Strategies) == 0 &&
		len(in.Failures) == 0 && len(in.LogEntries) == 0 && len(in.Directions) == 0
}

// #endregion insights

// #region config

// Config bounds the consolidated log.
type Config struct {
	SizeBudget int // soft maximum size of the rendered log, in bytes
	KeepRecent int // log entries kept verbatim at each end when compacting
}

// DefaultConfig matches the original learnings file bound.
func DefaultConfig() Config {
	return Config{
		SizeBudget: 10000,
		KeepRecent: 3,
	}
}

// #endregion config
