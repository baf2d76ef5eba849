package actions

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kosarica/import-service/internal/catalog"
	"github.com/kosarica/import-service/internal/types"
)

// priceChannels maps the fixed price columns to their channel names
var priceChannels = map[string]string{
	types.FieldRetailPrice: "retail",
	types.FieldTradePrice:  "trade",
	types.FieldCostPrice:   "cost",
	types.FieldSalePrice:   "sale",
}

// SetPricing writes every price column of the row as a channel price of the
// variant. Setting the same price twice is a no-op in the catalog.
type SetPricing struct {
	catalog catalog.Catalog
}

func NewSetPricing(cat catalog.Catalog) *SetPricing {
	return &SetPricing{catalog: cat}
}

func (a *SetPricing) Name() string   { return "set_pricing" }
func (a *SetPricing) Required() bool { return true }

func (a *SetPricing) Execute(ctx context.Context, ac *ActionContext) ActionResult {
	prices := RowPrices(ac.Fields)
	if len(prices) == 0 {
		return succeed("no prices on row")
	}
	variantID := ac.MetaString(MetaVariantID)
	if variantID == "" {
		ac.Warn("%d price(s) ignored: row has no variant", len(prices))
		return succeed("no variant to price")
	}

	if ac.DryRun {
		ac.Metadata[MetaPricesSet] = len(prices)
		return succeed(fmt.Sprintf("%d price(s) would be set", len(prices)))
	}

	channels := make([]string, 0, len(prices))
	for channel := range prices {
		channels = append(channels, channel)
	}
	sort.Strings(channels)

	for i, channel := range channels {
		if err := a.catalog.SetChannelPrice(ctx, variantID, channel, prices[channel]); err != nil {
			ac.Metadata[MetaPricesSet] = i
			return fail(fmt.Sprintf("failed to set %s price", channel), err)
		}
	}
	ac.Metadata[MetaPricesSet] = len(channels)
	return succeed(fmt.Sprintf("%d price(s) set", len(channels)))
}

// RowPrices collects channel prices from the fixed price columns and any
// price_<channel> column
func RowPrices(fields map[string]any) map[string]float64 {
	prices := make(map[string]float64)
	for field, channel := range priceChannels {
		if p := catalog.FloatField(fields, field); p != nil {
			prices[channel] = *p
		}
	}
	for field := range fields {
		channel, ok := strings.CutPrefix(field, types.PriceFieldPrefix)
		if !ok || channel == "" {
			continue
		}
		if p := catalog.FloatField(fields, field); p != nil {
			prices[strings.ToLower(channel)] = *p
		}
	}
	return prices
}
