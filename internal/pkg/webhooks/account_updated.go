package webhooks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v76"
)

const EventAccountUpdated = "account.updated"

// ClientSyncer copies provider-side account details onto the linked client.
type ClientSyncer interface {
	SyncDetailsByProviderAccountID(ctx context.Context, providerAccountID, name, email string) (bool, error)
}

// AccountUpdatedHandler syncs name and email once the account holder submitted details.
func AccountUpdatedHandler(clients ClientSyncer) HandlerFunc {
	return func(ctx context.Context, event Event) error {
		var acct stripe.Account
		if err := json.Unmarshal(event.Object, &acct); err != nil {
			return fmt.Errorf("decode account: %w", err)
		}
		if acct.ID == "" {
			return fmt.Errorf("account.updated %s without account id", event.ID)
		}
		if !acct.DetailsSubmitted {
			return nil
		}

		name := ""
		if acct.BusinessProfile != nil {
			name = acct.BusinessProfile.Name
		}
		if name == "" && acct.Company != nil {
			name = acct.Company.Name
		}

		matched, err := clients.SyncDetailsByProviderAccountID(ctx, acct.ID, name, acct.Email)
		if err != nil {
			return err
		}
		if !matched {
			log.Infof("[Webhook] account %s is not linked to any client", acct.ID)
		}
		return nil
	}
}
