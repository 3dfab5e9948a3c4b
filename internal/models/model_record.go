package models

import "encoding/json"

// ModelRecord is one evaluated AI model with its benchmark scores, pricing and
// latency figures. Absent values are nil and serialize as JSON null.
type ModelRecord struct {
	ID          string  `json:"id"`
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	CreatorID   *string `json:"creator_id"`
	CreatorName *string `json:"creator_name"`
	CreatorSlug *string `json:"creator_slug"`

	Evaluations map[string]any `json:"evaluations"`

	AAIntelligenceIndex *float64 `json:"aa_intelligence_index"`
	AACodingIndex       *float64 `json:"aa_coding_index"`
	AAMathIndex         *float64 `json:"aa_math_index"`
	MMLUPro             *float64 `json:"mmlu_pro"`
	GPQA                *float64 `json:"gpqa"`
	HLE                 *float64 `json:"hle"`
	LiveCodeBench       *float64 `json:"livecodebench"`
	SciCode             *float64 `json:"scicode"`
	Math500             *float64 `json:"math_500"`
	AIME                *float64 `json:"aime"`

	Pricing              map[string]any `json:"pricing"`
	PriceBlended3To1     *float64       `json:"price_1m_blended_3_to_1"`
	PriceInputTokens     *float64       `json:"price_1m_input_tokens"`
	PriceOutputTokens    *float64       `json:"price_1m_output_tokens"`
	OutputTokensPerSec   *float64       `json:"median_output_tokens_per_second"`
	TimeToFirstToken     *float64       `json:"median_time_to_first_token_seconds"`
	TimeToFirstAnswerTok *float64       `json:"median_time_to_first_answer_token"`

	FirstSeen string `json:"first_seen"`
	LastSeen  string `json:"last_seen"`
}

// CompanyName is the display name of the model's creator. It always equals
// CreatorName.
func (m ModelRecord) CompanyName() *string {
	return m.CreatorName
}

// MarshalJSON adds the derived company_name field.
func (m ModelRecord) MarshalJSON() ([]byte, error) {
	type Alias ModelRecord
	return json.Marshal(struct {
		Alias
		CompanyName *string `json:"company_name"`
	}{
		Alias:       Alias(m),
		CompanyName: m.CompanyName(),
	})
}

// HasValue reports whether the field serialized under key is present and not
// null. Unknown keys report false.
func (m ModelRecord) HasValue(key string) bool {
	switch key {
	case "id", "first_seen", "last_seen":
		return true
	case "name":
		return m.Name != nil
	case "slug":
		return m.Slug != nil
	case "creator_id":
		return m.CreatorID != nil
	case "creator_name", "company_name":
		return m.CreatorName != nil
	case "creator_slug":
		return m.CreatorSlug != nil
	case "evaluations":
		return m.Evaluations != nil
	case "pricing":
		return m.Pricing != nil
	}

	if f, ok := m.numericFields()[key]; ok {
		return f != nil
	}

	return false
}

// NumericFieldKeys lists the JSON keys of every numeric field of ModelRecord.
var NumericFieldKeys = []string{
	"aa_intelligence_index",
	"aa_coding_index",
	"aa_math_index",
	"mmlu_pro",
	"gpqa",
	"hle",
	"livecodebench",
	"scicode",
	"math_500",
	"aime",
	"price_1m_blended_3_to_1",
	"price_1m_input_tokens",
	"price_1m_output_tokens",
	"median_output_tokens_per_second",
	"median_time_to_first_token_seconds",
	"median_time_to_first_answer_token",
}

// Numeric returns the value of the numeric field serialized under key.
// The second result is false when key is not a numeric field.
func (m ModelRecord) Numeric(key string) (*float64, bool) {
	f, ok := m.numericFields()[key]
	return f, ok
}

func (m ModelRecord) numericFields() map[string]*float64 {
	return map[string]*float64{
		"aa_intelligence_index":              m.AAIntelligenceIndex,
		"aa_coding_index":                    m.AACodingIndex,
		"aa_math_index":                      m.AAMathIndex,
		"mmlu_pro":                           m.MMLUPro,
		"gpqa":                               m.GPQA,
		"hle":                                m.HLE,
		"livecodebench":                      m.LiveCodeBench,
		"scicode":                            m.SciCode,
		"math_500":                           m.Math500,
		"aime":                               m.AIME,
		"price_1m_blended_3_to_1":            m.PriceBlended3To1,
		"price_1m_input_tokens":              m.PriceInputTokens,
		"price_1m_output_tokens":             m.PriceOutputTokens,
		"median_output_tokens_per_second":    m.OutputTokensPerSec,
		"median_time_to_first_token_seconds": m.TimeToFirstToken,
		"median_time_to_first_answer_token":  m.TimeToFirstAnswerTok,
	}
}
