// Package domain – inbound message identity and the processed-message ledger.
//
// Presence of a ProcessedMessage row means "processing has started or
// completed for this inbound event". It is pure admission control: results
// live in the global link cache and job records, never here.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ProcessedMessage marks one inbound WhatsApp event as admitted. Key is
// unique; inserting a duplicate is how a redelivered webhook is detected.
type ProcessedMessage struct {
	Key        string    `json:"key"         bson:"key"`
	PhoneNo    string    `json:"phoneNo"     bson:"phoneNo"`
	Text       string    `json:"text"        bson:"text"`
	ReceivedAt time.Time `json:"received_at" bson:"received_at"`
}

// MessageKey derives the dedup identity for an inbound message. An explicit
// message id wins; otherwise the key is a hash of (waId, text, timestamp).
// The fallback is namespaced so a synthesized key can never collide with a
// provider-issued id. Two genuinely distinct messages with identical
// sender+text+timestamp still collide; accepted as best effort.
func MessageKey(whatsappMessageID, id, waID, text, timestamp string) string {
	if whatsappMessageID != "" {
		return whatsappMessageID
	}
	if id != "" {
		return id
	}
	sum := sha256.Sum256([]byte(waID + "|" + text + "|" + timestamp))
	return "fallback:" + hex.EncodeToString(sum[:])
}
