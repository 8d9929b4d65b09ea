package notify

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// NotifyEvent formats a marketplace event into an operator alert and routes it
// through the event-type filter. Unrecognized event types are ignored.
func (n *Notifier) NotifyEvent(ctx context.Context, e domain.Event) error {
	title, message, ok := formatEvent(e)
	if !ok {
		return nil
	}
	return n.Notify(ctx, string(e.Type), title, message)
}

func formatEvent(e domain.Event) (title, message string, ok bool) {
	asset := fmt.Sprintf("%s token #%d (%s)", e.Kind, e.TokenID, e.Contract.Hex())

	switch e.Type {
	case domain.EventListingCreated:
		title = "Listing created"
		message = fmt.Sprintf("%s listed by %s for %s wei (quantity %d)",
			asset, e.Seller.Hex(), e.Price, e.Quantity)
	case domain.EventListingUpdated:
		title = "Listing updated"
		message = fmt.Sprintf("%s repriced to %s wei by %s",
			asset, e.Price, e.Seller.Hex())
	case domain.EventListingPausedUnpaused:
		if e.Paused {
			title = "Listing paused"
		} else {
			title = "Listing resumed"
		}
		message = fmt.Sprintf("%s by seller %s", asset, e.Seller.Hex())
	case domain.EventListingSold:
		title = "Listing sold"
		message = fmt.Sprintf("%s sold to %s for %s wei (quantity %d)",
			asset, e.Buyer.Hex(), e.Price, e.Quantity)
	case domain.EventListingRemoved:
		title = "Listing removed"
		message = fmt.Sprintf("%s delisted by %s", asset, e.Seller.Hex())
	default:
		return "", "", false
	}

	return title, message, true
}
