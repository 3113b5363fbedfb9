package emotion

import (
	"math"
	"strings"

	"github.com/echolens-ai/echolens/internal/detection"
)

// keywordCategory is one row of the keyword table.
type keywordCategory struct {
	emotion  string
	keywords []string
}

// keywordTable is scanned in order; the first category wins ties.
var keywordTable = []keywordCategory{
	{"happy", []string{"happy", "joy", "glad", "great", "wonderful", "love", "delighted"}},
	{"excited", []string{"excited", "thrilled", "enthusiastic", "amazing", "can't wait"}},
	{"sad", []string{"sad", "unhappy", "depressed", "down", "miss", "lonely"}},
	{"angry", []string{"angry", "mad", "furious", "hate", "annoyed"}},
	{"frustrated", []string{"frustrated", "stuck", "not working", "annoying", "ugh"}},
	{"concerned", []string{"worried", "anxious", "nervous", "stress", "concerned", "afraid"}},
	{"surprised", []string{"surprised", "wow", "unexpected", "shocked"}},
	{"confused", []string{"confused", "not sure", "don't understand", "unclear", "what do you mean"}},
}

const (
	neutralConfidence = 0.5
	neutralIntensity  = 0.4
	maxConfidence     = 0.7
	intensityFactor   = 0.8
)

// Fallback scores text against the keyword table. Keyword hits are counted
// as substring occurrences in the lower-cased text.
func Fallback(text string) Result {
	lower := strings.ToLower(text)

	best, bestScore, total := "", 0, 0
	for _, cat := range keywordTable {
		score := 0
		for _, kw := range cat.keywords {
			score += strings.Count(lower, kw)
		}
		total += score
		if score > bestScore {
			best, bestScore = cat.emotion, score
		}
	}

	if bestScore == 0 {
		return Result{
			Emotion:     detection.EmotionNeutral,
			Confidence:  neutralConfidence,
			Intensity:   neutralIntensity,
			Explanation: "No emotional keywords found",
			Source:      detection.AnalysisFallback,
		}
	}

	confidence := math.Min(maxConfidence, float64(bestScore)/float64(total+1)*maxConfidence)
	return Result{
		Emotion:     best,
		Confidence:  confidence,
		Intensity:   confidence * intensityFactor,
		Explanation: "Keyword analysis detected " + best,
		Source:      detection.AnalysisFallback,
	}
}
