package betfair

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/cross-book/internal/models"
)

// maxMarketsPerBook is the listMarketBook batch limit when requesting
// full price depth.
const maxMarketsPerBook = 40

// MarketBook represents current market state and odds
type MarketBook struct {
	MarketID     string   `json:"marketId"`
	Status       string   `json:"status"`
	BetDelay     int      `json:"betDelay"`
	Complete     bool     `json:"complete"`
	Runners      []Runner `json:"runners"`
	TotalMatched float64  `json:"totalMatched"`
	Version      int64    `json:"version"`
}

// Runner represents a runner in the market with current odds
type Runner struct {
	SelectionID     int64          `json:"selectionId"`
	Status          string         `json:"status"`
	LastPriceTraded float64        `json:"lastPriceTraded"`
	TotalMatched    float64        `json:"totalMatched"`
	ExchangePrices  ExchangePrices `json:"ex"`
}

// ExchangePrices represents available back/lay prices
type ExchangePrices struct {
	AvailableToBack []PriceSize `json:"availableToBack"`
	AvailableToLay  []PriceSize `json:"availableToLay"`
	TradedVolume    []PriceSize `json:"tradedVolume"`
}

// PriceSize represents a price level with size
type PriceSize struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// marketIDString renders a numeric market id in Betfair "1.<id>" form
func marketIDString(id int64) string {
	return fmt.Sprintf("1.%d", id)
}

// parseMarketID parses a Betfair "1.<id>" market id back to its numeric form
func parseMarketID(s string) (int64, error) {
	trimmed := strings.TrimPrefix(s, "1.")
	return strconv.ParseInt(trimmed, 10, 64)
}

// FetchPrices fetches current price ladders for the given markets via
// listMarketBook. Markets missing from the response are reported back as
// errored so callers can stop tracking them.
func (c *Client) FetchPrices(ctx context.Context, marketIDs []int64) (map[models.SelectionKey]*models.Selection, []int64, error) {
	selections := make(map[models.SelectionKey]*models.Selection)
	var errored []int64

	for start := 0; start < len(marketIDs); start += maxMarketsPerBook {
		end := start + maxMarketsPerBook
		if end > len(marketIDs) {
			end = len(marketIDs)
		}
		batch := marketIDs[start:end]

		books, err := c.listMarketBook(ctx, batch)
		if err != nil {
			return nil, nil, err
		}

		seen := make(map[int64]bool, len(books))
		fetchedAt := time.Now()
		for _, book := range books {
			marketID, err := parseMarketID(book.MarketID)
			if err != nil {
				c.logger.WithField("market_id", book.MarketID).Warn("unparseable market id in book")
				continue
			}
			if book.Status == "CLOSED" {
				errored = append(errored, marketID)
				seen[marketID] = true
				continue
			}
			seen[marketID] = true
			for _, runner := range book.Runners {
				if runner.Status != "ACTIVE" {
					continue
				}
				sel := bookRunnerToSelection(marketID, runner, fetchedAt)
				selections[sel.Key()] = sel
			}
		}

		for _, id := range batch {
			if !seen[id] {
				errored = append(errored, id)
			}
		}
	}

	return selections, errored, nil
}

func (c *Client) listMarketBook(ctx context.Context, marketIDs []int64) ([]MarketBook, error) {
	ids := make([]string, len(marketIDs))
	for i, id := range marketIDs {
		ids[i] = marketIDString(id)
	}

	params := map[string]interface{}{
		"marketIds": ids,
		"priceProjection": map[string]interface{}{
			"priceData": []string{"EX_BEST_OFFERS", "EX_TRADED"},
			"exBestOffersOverrides": map[string]interface{}{
				"bestPricesDepth": models.DefaultLadderDepth,
			},
		},
	}

	result, err := c.makeRequest(ctx, c.config.APIURL, "SportsAPING/v1.0/listMarketBook", params)
	if err != nil {
		return nil, err
	}

	var books []MarketBook
	if err := json.Unmarshal(result, &books); err != nil {
		return nil, fmt.Errorf("failed to parse market book response: %w", err)
	}
	return books, nil
}

func bookRunnerToSelection(marketID int64, runner Runner, fetchedAt time.Time) *models.Selection {
	back := make([]models.PricePoint, 0, len(runner.ExchangePrices.AvailableToBack))
	for _, ps := range runner.ExchangePrices.AvailableToBack {
		back = append(back, models.PricePoint{Price: ps.Price, Amount: ps.Size})
	}
	lay := make([]models.PricePoint, 0, len(runner.ExchangePrices.AvailableToLay))
	for _, ps := range runner.ExchangePrices.AvailableToLay {
		lay = append(lay, models.PricePoint{Price: ps.Price, Amount: ps.Size})
	}

	sel := models.NewSelection(models.ExchangeBF, marketID, runner.SelectionID, "", back, lay, models.DefaultLadderDepth)
	sel.FetchedAt = fetchedAt
	if runner.LastPriceTraded > 0 {
		price := runner.LastPriceTraded
		amount := runner.TotalMatched
		sel.LastMatchedPrice = &price
		sel.LastMatchedAmount = &amount
	}
	return sel
}
