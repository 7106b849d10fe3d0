package signals

// Threshold constants for the derived Flags. Tunable, not hardcoded deep in
// logic — spec.md §4.1 calls these "tunable constants" explicitly.
const (
	HighEmotionLexiconThreshold = 3   // total emotion-category hits
	SelfReflectiveRatio         = 0.1 // self-inquiry questions per sentence
	NarrativeTemporalRatio      = 0.15 // not consulted by computeFlags
	NarrativeWordsPerSentence   = 12   // mean words per sentence
	AnalyticalHedgeRatio        = 0.08
)

func computeFlags(c Counts, lex map[Category]int, q QuestionCounts) Flags {
	emotionTotal := 0
	for cat, n := range lex {
		if isEmotionCategory(cat) {
			emotionTotal += n
		}
	}

	sentences := maxInt(c.Sentences, 1)

	return Flags{
		HighEmotion:    emotionTotal >= HighEmotionLexiconThreshold,
		SelfReflective: float64(q.SelfInquiry)/float64(sentences) >= SelfReflectiveRatio,
		Narrative:      isNarrative(c, sentences),
		Analytical:     float64(lex[CategoryHedge])/float64(sentences) >= AnalyticalHedgeRatio && lex[CategoryAbsolute] == 0,
	}
}

func isNarrative(c Counts, sentences int) bool {
	return float64(c.Words)/float64(sentences) >= NarrativeWordsPerSentence // longer sentences read as narrative prose
}

func isEmotionCategory(c Category) bool {
	switch c {
	case CategoryIntensifier, CategoryHedge, CategoryAbsolute:
		return false
	default:
		return true
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
