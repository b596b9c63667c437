/*
Package shop implements the RadCoin store: the catalog of purchasable
help-aid bundles and the purchase-settlement flow.

PURPOSE:
  Users spend RadCoins on items and limited-time offers that grant help
  aids. This file defines the catalog model and the price derivation rule;
  settlement.go performs the actual debit/credit flow.

PRICING RULE:
  1. If the item carries a sale price, the sale price wins outright.
  2. Else if it carries a percentage discount,
     final = floor(price * (1 - discount/100)).
  3. Else the list price applies.
  Discount math runs on decimals and floors to a whole coin, so a 20%
  discount on 99 coins is 79, never 79.2 and never a float.

SEE ALSO:
  - settlement.go: The purchase flow consuming these items
*/
package shop

import (
	"context"

	"github.com/radventure/engine/helpaid"
	"github.com/radventure/engine/radcoin"
	"github.com/shopspring/decimal"
)

// =============================================================================
// CATALOG ITEM
// =============================================================================

type Category string

const (
	CategoryHelpAids Category = "help_aids"
	CategoryBundle   Category = "bundle"
	CategoryOffer    Category = "special_offer"
)

// Item is a purchasable catalog entry. SalePrice and Discount are optional;
// see the pricing rule above for precedence.
type Item struct {
	ID          string
	Name        string
	Description string
	Category    Category
	Price       int64
	SalePrice   *int64
	Discount    *int // percent, 0-100
	Benefits    helpaid.Grant
	Active      bool
}

var oneHundred = decimal.NewFromInt(100)

// FinalPrice derives the effective price in RadCoins.
func (it Item) FinalPrice() radcoin.Amount {
	if it.SalePrice != nil {
		return radcoin.NewCoins(*it.SalePrice)
	}
	if it.Discount != nil && *it.Discount > 0 {
		price := decimal.NewFromInt(it.Price)
		factor := oneHundred.Sub(decimal.NewFromInt(int64(*it.Discount))).Div(oneHundred)
		return radcoin.Amount{Value: price.Mul(factor).Floor(), Unit: radcoin.UnitRadCoins}
	}
	return radcoin.NewCoins(it.Price)
}

// =============================================================================
// CATALOG - Read-only item lookup
// =============================================================================

type Catalog interface {
	// ListItems returns all active catalog items.
	ListItems(ctx context.Context) ([]Item, error)

	// GetItem returns one item by id, nil if absent.
	GetItem(ctx context.Context, id string) (*Item, error)
}
