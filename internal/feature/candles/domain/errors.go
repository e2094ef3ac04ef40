// Package domain holds the candles feature's domain errors.
package domain

import "errors"

// ErrSlotOutOfRange は index が 0 <= index < maxLen を満たさない書き込みで返されます。
var ErrSlotOutOfRange = errors.New("slot index out of range")
