package ai

// Turn is one user/bot exchange in the history window sent to the bot
// service.
type Turn struct {
	User string `json:"user"`
	Bot  string `json:"bot"`
}

// SentimentResult is the classifier's best-effort verdict on a message.
type SentimentResult struct {
	IsPositive bool `json:"is_positive"`
}
