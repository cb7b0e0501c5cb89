package core

import "encoding/json"

// Sentiment is the verdict attached to an analysis report.
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
)

// ParseSentiment maps a wire value to a Sentiment. Unknown values collapse
// to neutral rather than failing the whole report.
func ParseSentiment(s string) Sentiment {
	switch Sentiment(s) {
	case SentimentBullish, SentimentBearish, SentimentNeutral:
		return Sentiment(s)
	default:
		return SentimentNeutral
	}
}

// UnmarshalJSON normalizes unknown sentiment values to neutral.
func (s *Sentiment) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseSentiment(raw)
	return nil
}

// ReportDetail is one line of supporting evidence in a report.
type ReportDetail struct {
	Icon string `json:"icon"`
	Text string `json:"text"`
}

// WalletInfo is the backend-observed on-chain state of the analyzed address.
type WalletInfo struct {
	Balance      *float64 `json:"balance"`
	Status       string   `json:"status,omitempty"`
	LastActivity any      `json:"last_activity,omitempty"`
}

// Report is the artifact returned by a gated action. A fresh Report replaces
// any prior one; reports are never merged.
type Report struct {
	Status     string         `json:"status,omitempty"`
	Sentiment  Sentiment      `json:"sentiment"`
	Summary    string         `json:"report"`
	Details    []ReportDetail `json:"details"`
	WalletInfo *WalletInfo    `json:"wallet_info,omitempty"`
	Timestamp  string         `json:"timestamp,omitempty"`
}
