package ingest

// defaultStopwords are common English function words. Runs can extend
// the set via a stoplist file; see config.LoadStoplist.
var defaultStopwords = []string{
	"the", "a", "an", "is", "was", "are", "were", "be", "been", "being",
	"have", "has", "had", "do", "does", "did", "will", "would", "could",
	"should", "may", "might", "shall", "can", "need", "dare", "ought",
	"to", "of", "in", "for", "on", "with", "at", "by", "from", "as",
	"into", "through", "during", "before", "after", "above", "below",
	"between", "out", "off", "over", "under", "again", "further", "then",
	"once", "and", "but", "or", "nor", "not", "so", "yet", "both",
	"either", "neither", "each", "every", "all", "any", "few", "more",
	"most", "other", "some", "such", "no", "only", "own", "same",
	"than", "too", "very", "just", "because", "if", "when", "while",
	"that", "which", "who", "whom", "this", "these", "those",
	"it", "its", "he", "she", "his", "her", "they", "them", "their",
	"we", "our", "you", "your", "i", "me", "my", "up", "about",
	"what", "how", "where", "why", "there", "here", "now", "also",
}

// DefaultStopwords returns a copy of the built-in English stopword list.
func DefaultStopwords() []string {
	out := make([]string, len(defaultStopwords))
	copy(out, defaultStopwords)
	return out
}
