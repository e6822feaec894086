package model

// BlockRef maps a UNIX timestamp to the block found for it.
type BlockRef struct {
	Timestamp int64  `json:"timestamp"`
	Number    uint64 `json:"number"`
}
