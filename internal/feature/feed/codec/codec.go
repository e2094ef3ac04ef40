// Package codec encodes subscription frames for and decodes tick frames from the vendor feed.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stock_realtime/internal/feature/feed/domain/entity"
)

var (
	// ErrUnsupportedVenue is returned for an exchange without a known instrument-key prefix.
	ErrUnsupportedVenue = errors.New("unsupported venue")
	// ErrMalformedFrame is returned for an inbound frame that cannot be decoded into a Tick.
	ErrMalformedFrame = errors.New("malformed frame")
)

const (
	// DefaultTrID は海外株式のリアルタイム約定データの取引IDです。
	DefaultTrID = "HDFSCNT0"
	// HeartbeatTrID identifies keep-alive frames that must be echoed back.
	HeartbeatTrID = "PINGPONG"

	minFields = 20
)

// payload field positions
const (
	fSymbol     = 0
	fHomeDate   = 5
	fHomeTime   = 6
	fLast       = 10
	fSign       = 11
	fDiff       = 12
	fRate       = 13
	fExecVolume = 18
)

// numericFields must parse as numbers for a frame to be accepted.
var numericFields = []int{7, 8, 9, 10, 12, 13, 14, 15, 16, 17, 18, 19}

// Codec converts between domain values and vendor wire frames.
type Codec struct {
	trID string
	home *time.Location
}

// New は Codec を生成します。home は受信フレームの日付・時刻（韓国時間）を解釈するタイムゾーンです。
func New(trID string, home *time.Location) *Codec {
	if trID == "" {
		trID = DefaultTrID
	}
	if home == nil {
		home = time.UTC
	}
	return &Codec{trID: trID, home: home}
}

type subscribeFrame struct {
	Header subscribeHeader `json:"header"`
	Body   subscribeBody   `json:"body"`
}

type subscribeHeader struct {
	ApprovalKey string `json:"approval_key"`
	CustType    string `json:"custtype"`
	TrType      string `json:"tr_type"`
	ContentType string `json:"content-type"`
}

type subscribeBody struct {
	Input struct {
		TrID  string `json:"tr_id"`
		TrKey string `json:"tr_key"`
	} `json:"input"`
}

// BuildSubscribeFrame は1銘柄分の購読リクエストフレームを生成します。
func (c *Codec) BuildSubscribeFrame(approvalKey string, inst entity.Instrument) ([]byte, error) {
	key, err := ToVenueCode(inst.Venue, inst.Symbol)
	if err != nil {
		return nil, err
	}
	f := subscribeFrame{
		Header: subscribeHeader{
			ApprovalKey: approvalKey,
			CustType:    "P",
			TrType:      "1",
			ContentType: "utf-8",
		},
	}
	f.Body.Input.TrID = c.trID
	f.Body.Input.TrKey = key
	return json.Marshal(f)
}

// ParseInboundFrame は "0|TR_ID|件数|f0^f1^..." 形式のデータフレームを Tick に変換します。
// 暗号化フレーム（先頭が "0"/"1" 以外）や項目不足・数値不正は ErrMalformedFrame で、panic はしません。
// 複数件を含むフレームでは先頭の1件のみを取り出します。
func (c *Codec) ParseInboundFrame(raw []byte) (entity.Tick, error) {
	segs := strings.SplitN(string(raw), "|", 4)
	if len(segs) != 4 {
		return entity.Tick{}, fmt.Errorf("%w: want 4 segments, got %d", ErrMalformedFrame, len(segs))
	}
	if segs[0] != "0" && segs[0] != "1" {
		return entity.Tick{}, fmt.Errorf("%w: encrypted or unknown envelope %q", ErrMalformedFrame, segs[0])
	}
	if segs[1] != c.trID {
		return entity.Tick{}, fmt.Errorf("%w: unexpected tr_id %q", ErrMalformedFrame, segs[1])
	}

	fields := strings.Split(segs[3], "^")
	if len(fields) < minFields {
		return entity.Tick{}, fmt.Errorf("%w: %d fields", ErrMalformedFrame, len(fields))
	}
	for _, i := range numericFields {
		if _, err := strconv.ParseFloat(fields[i], 64); err != nil {
			return entity.Tick{}, fmt.Errorf("%w: field %d %q", ErrMalformedFrame, i, fields[i])
		}
	}

	symbol, venue, err := FromVenueCode(fields[fSymbol])
	if err != nil {
		return entity.Tick{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	ts, err := time.ParseInLocation("20060102150405", fields[fHomeDate]+fields[fHomeTime], c.home)
	if err != nil {
		return entity.Tick{}, fmt.Errorf("%w: timestamp %q %q", ErrMalformedFrame, fields[fHomeDate], fields[fHomeTime])
	}
	vol, err := strconv.ParseInt(fields[fExecVolume], 10, 64)
	if err != nil || vol < 0 {
		return entity.Tick{}, fmt.Errorf("%w: volume %q", ErrMalformedFrame, fields[fExecVolume])
	}

	price, _ := strconv.ParseFloat(fields[fLast], 64)
	if price <= 0 {
		return entity.Tick{}, fmt.Errorf("%w: price %q", ErrMalformedFrame, fields[fLast])
	}
	diff, _ := strconv.ParseFloat(fields[fDiff], 64)
	rate, _ := strconv.ParseFloat(fields[fRate], 64)
	// 符号 4(下落)/5(下限) は差額が負
	if s := fields[fSign]; (s == "4" || s == "5") && diff > 0 {
		diff = -diff
	}

	return entity.Tick{
		Symbol:     symbol,
		Venue:      venue,
		Price:      price,
		Volume:     vol,
		Diff:       diff,
		ChangeRate: rate,
		Time:       ts,
	}, nil
}

// ControlFrame is a JSON frame from the vendor: subscribe acks and heartbeats.
type ControlFrame struct {
	Header struct {
		TrID  string `json:"tr_id"`
		TrKey string `json:"tr_key"`
	} `json:"header"`
	Body struct {
		RtCd  string `json:"rt_cd"`
		MsgCd string `json:"msg_cd"`
		Msg1  string `json:"msg1"`
	} `json:"body"`
}

// IsHeartbeat reports whether the frame must be echoed back verbatim.
func (f ControlFrame) IsHeartbeat() bool {
	return f.Header.TrID == HeartbeatTrID
}

// Failed は購読応答がエラー（rt_cd != "0"）かどうかを返します。
func (f ControlFrame) Failed() bool {
	return !f.IsHeartbeat() && f.Body.RtCd != "" && f.Body.RtCd != "0"
}

// ParseControlFrame decodes a JSON control frame. Data frames yield false.
func ParseControlFrame(raw []byte) (ControlFrame, bool) {
	var f ControlFrame
	if len(raw) == 0 || raw[0] != '{' {
		return f, false
	}
	if err := json.Unmarshal(raw, &f); err != nil {
		return f, false
	}
	return f, true
}
