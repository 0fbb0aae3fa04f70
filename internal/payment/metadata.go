package payment

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	metaUserID    = "user_id"
	metaUserEmail = "user_email"
	metaItemCount = "item_count"
	metaItemFmt   = "item_%d"
	fieldSep      = "|"
)

const (
	// MaxLines bounds the lines of one checkout; each line takes a metadata key.
	MaxLines = 20
	// MaxLineQuantity bounds the quantity of a single line.
	MaxLineQuantity = 100
)

// EncodeMetadata flattens the buyer and the lines into provider metadata,
// which is limited to string key/value pairs.
func EncodeMetadata(userID, email string, items []Item) map[string]string {
	meta := map[string]string{
		metaUserID:    userID,
		metaUserEmail: email,
		metaItemCount: strconv.Itoa(len(items)),
	}
	for i, it := range items {
		meta[fmt.Sprintf(metaItemFmt, i)] = strings.Join([]string{
			it.ProductID,
			it.SKUID,
			strconv.Itoa(it.Quantity),
			it.UnitPrice.StringFixed(2),
		}, fieldSep)
	}
	return meta
}

// DecodeMetadata is the inverse of EncodeMetadata.
func DecodeMetadata(meta map[string]string) (userID, email string, items []Item, err error) {
	count, err := strconv.Atoi(meta[metaItemCount])
	if err != nil {
		return "", "", nil, fmt.Errorf("invalid %s %q: %w", metaItemCount, meta[metaItemCount], err)
	}
	if count < 1 || count > MaxLines {
		return "", "", nil, fmt.Errorf("%s %d is out of range 1..%d", metaItemCount, count, MaxLines)
	}

	items = make([]Item, 0, count)
	for i := 0; i < count; i++ {
		key := fmt.Sprintf(metaItemFmt, i)
		raw, ok := meta[key]
		if !ok {
			return "", "", nil, fmt.Errorf("metadata %s is missing", key)
		}
		parts := strings.Split(raw, fieldSep)
		if len(parts) != 4 {
			return "", "", nil, fmt.Errorf("metadata %s has %d fields, want 4", key, len(parts))
		}
		qty, err := strconv.Atoi(parts[2])
		if err != nil || qty < 1 || qty > MaxLineQuantity {
			return "", "", nil, fmt.Errorf("metadata %s has invalid quantity %q", key, parts[2])
		}
		price, err := decimal.NewFromString(parts[3])
		if err != nil {
			return "", "", nil, fmt.Errorf("metadata %s has invalid unit price %q: %w", key, parts[3], err)
		}
		items = append(items, Item{ProductID: parts[0], SKUID: parts[1], Quantity: qty, UnitPrice: price})
	}
	return meta[metaUserID], meta[metaUserEmail], items, nil
}
