package vision

// AnalysisResult is the validated outcome of one inference call. The json
// tags preserve the wire names the browser client already stores, including
// the upstream prompt's spelling of "discription" and "replys".
type AnalysisResult struct {
	ImageDescription   string   `json:"image_discription"`
	RepresentativeWord string   `json:"representative_word"`
	ExampleSentence    string   `json:"example_sentence"`
	Explanation        string   `json:"explanation"`
	ExplanationLines   []string `json:"explanations"`
	ExplanationReplies []string `json:"explanation_replys"`
}
