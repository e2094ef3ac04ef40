package dto

// SeriesResponse は当日シリーズのレスポンスDTOです。
type SeriesResponse struct {
	Symbol  string         `json:"symbol"`
	Date    string         `json:"date"`
	Session string         `json:"session"` // "HH:MM~HH:MM" or "closed"
	Event   string         `json:"event,omitempty"`
	MaxLen  int            `json:"maxLen"`
	Slots   []SlotResponse `json:"slots"`
}

// SlotResponse はロウソク足スロットのレスポンスDTOです。
type SlotResponse struct {
	Index  int     `json:"index"`  // セッション開始からの分
	Time   string  `json:"time"`   // 開始時刻 (RFC3339)
	Open   float64 `json:"open"`   // 始値
	High   float64 `json:"high"`   // 高値
	Low    float64 `json:"low"`    // 安値
	Close  float64 `json:"close"`  // 終値
	Volume int64   `json:"volume"` // 出来高
}
