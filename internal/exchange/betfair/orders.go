package betfair

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/cross-book/internal/models"
)

// PlaceInstruction represents a single order placement instruction
type PlaceInstruction struct {
	OrderType   string      `json:"orderType"`
	SelectionID int64       `json:"selectionId"`
	Side        string      `json:"side"`
	CustomerOrderRef string `json:"customerOrderRef,omitempty"`
	LimitOrder  *LimitOrder `json:"limitOrder,omitempty"`
}

// LimitOrder represents a limit order
type LimitOrder struct {
	Size            float64 `json:"size"`
	Price           float64 `json:"price"`
	PersistenceType string  `json:"persistenceType"`
}

// InstructionReport represents the result of a single instruction
type InstructionReport struct {
	Status              string     `json:"status"`
	ErrorCode           string     `json:"errorCode,omitempty"`
	OrderStatus         string     `json:"orderStatus,omitempty"`
	BetID               string     `json:"betId,omitempty"`
	PlacedDate          *time.Time `json:"placedDate,omitempty"`
	AveragePriceMatched float64    `json:"averagePriceMatched,omitempty"`
	SizeMatched         float64    `json:"sizeMatched,omitempty"`
	Instruction         *PlaceInstruction `json:"instruction,omitempty"`
}

type executeResponse struct {
	MarketID           string              `json:"marketId"`
	Status             string              `json:"status"`
	ErrorCode          string              `json:"errorCode,omitempty"`
	InstructionReports []InstructionReport `json:"instructionReports"`
}

// persistenceType maps the order flags to the Betfair persistence enum
func persistenceType(o *models.Order) string {
	if o.Persistence {
		return "PERSIST"
	}
	return "LAPSE"
}

// PlaceOrders submits not-yet-placed intents via placeOrders. Betfair is
// synchronous: bet ids and matched amounts come back in the response, so
// every returned report carries a reference.
func (c *Client) PlaceOrders(ctx context.Context, intents []*models.Order) (map[uuid.UUID]*models.Order, error) {
	reports := make(map[uuid.UUID]*models.Order)

	for marketID, group := range groupByMarket(intents) {
		instructions := make([]PlaceInstruction, 0, len(group))
		for _, o := range group {
			instructions = append(instructions, PlaceInstruction{
				OrderType:        "LIMIT",
				SelectionID:      o.SelectionID,
				Side:             o.Side.String(),
				CustomerOrderRef: o.ID.String(),
				LimitOrder: &LimitOrder{
					Size:            o.Stake,
					Price:           o.Price,
					PersistenceType: persistenceType(o),
				},
			})
		}

		params := map[string]interface{}{
			"marketId":     marketIDString(marketID),
			"instructions": instructions,
		}

		result, err := c.makeRequest(ctx, c.config.APIURL, "SportsAPING/v1.0/placeOrders", params)
		if err != nil {
			return reports, err
		}

		var resp executeResponse
		if err := json.Unmarshal(result, &resp); err != nil {
			return reports, fmt.Errorf("failed to parse place orders response: %w", err)
		}

		for i, report := range resp.InstructionReports {
			if i >= len(group) {
				break
			}
			local := group[i]
			if report.Status != "SUCCESS" {
				c.logger.WithFields(map[string]interface{}{
					"order_id":   local.ID,
					"error_code": report.ErrorCode,
				}).Warn("order placement rejected")
				continue
			}
			reports[local.ID] = placementReport(local, report)
		}
	}

	return reports, nil
}

// placementReport builds the exchange-reported view of a freshly placed order
func placementReport(local *models.Order, report InstructionReport) *models.Order {
	out := &models.Order{
		ID:           local.ID,
		ExchangeID:   models.ExchangeBF,
		MarketID:     local.MarketID,
		SelectionID:  local.SelectionID,
		Side:         local.Side,
		Price:        local.Price,
		Stake:        local.Stake,
		Ref:          report.BetID,
		MatchedStake: report.SizeMatched,
	}
	if report.PlacedDate != nil {
		out.PlacedAt = *report.PlacedDate
	}
	switch report.OrderStatus {
	case "EXECUTION_COMPLETE":
		out.Status = models.OrderMatched
		out.UnmatchedStake = 0
	default:
		out.Status = models.OrderUnmatched
		out.UnmatchedStake = local.Stake - report.SizeMatched
	}
	return out
}

// CancelOrders cancels unmatched orders via cancelOrders
func (c *Client) CancelOrders(ctx context.Context, orders []*models.Order) (map[uuid.UUID]*models.Order, error) {
	reports := make(map[uuid.UUID]*models.Order)

	for marketID, group := range groupByMarket(orders) {
		instructions := make([]map[string]interface{}, 0, len(group))
		for _, o := range group {
			instructions = append(instructions, map[string]interface{}{"betId": o.Ref})
		}

		params := map[string]interface{}{
			"marketId":     marketIDString(marketID),
			"instructions": instructions,
		}

		result, err := c.makeRequest(ctx, c.config.APIURL, "SportsAPING/v1.0/cancelOrders", params)
		if err != nil {
			return reports, err
		}

		var resp executeResponse
		if err := json.Unmarshal(result, &resp); err != nil {
			return reports, fmt.Errorf("failed to parse cancel orders response: %w", err)
		}

		for i, report := range resp.InstructionReports {
			if i >= len(group) || report.Status != "SUCCESS" {
				continue
			}
			local := group[i]
			reports[local.ID] = &models.Order{
				ID:           local.ID,
				ExchangeID:   models.ExchangeBF,
				MarketID:     local.MarketID,
				SelectionID:  local.SelectionID,
				Side:         local.Side,
				Price:        local.Price,
				Stake:        local.Stake,
				Ref:          local.Ref,
				Status:       models.OrderCancelled,
				MatchedStake: local.MatchedStake,
			}
		}
	}

	return reports, nil
}

// UpdateOrders reprices unmatched orders via replaceOrders. Betfair has no
// in-place price update; a replace cancels and resubmits, so the report under
// the old local id carries a fresh local id and the new bet id.
func (c *Client) UpdateOrders(ctx context.Context, orders []*models.Order) (map[uuid.UUID]*models.Order, error) {
	reports := make(map[uuid.UUID]*models.Order)

	for marketID, group := range groupByMarket(orders) {
		instructions := make([]map[string]interface{}, 0, len(group))
		for _, o := range group {
			instructions = append(instructions, map[string]interface{}{
				"betId":    o.Ref,
				"newPrice": o.Price,
			})
		}

		params := map[string]interface{}{
			"marketId":     marketIDString(marketID),
			"instructions": instructions,
		}

		result, err := c.makeRequest(ctx, c.config.APIURL, "SportsAPING/v1.0/replaceOrders", params)
		if err != nil {
			return reports, err
		}

		var resp struct {
			Status             string `json:"status"`
			InstructionReports []struct {
				Status             string             `json:"status"`
				CancelInstructionReport *InstructionReport `json:"cancelInstructionReport,omitempty"`
				PlaceInstructionReport  *InstructionReport `json:"placeInstructionReport,omitempty"`
			} `json:"instructionReports"`
		}
		if err := json.Unmarshal(result, &resp); err != nil {
			return reports, fmt.Errorf("failed to parse replace orders response: %w", err)
		}

		for i, report := range resp.InstructionReports {
			if i >= len(group) || report.Status != "SUCCESS" || report.PlaceInstructionReport == nil {
				continue
			}
			local := group[i]
			placed := *report.PlaceInstructionReport
			out := &models.Order{
				ID:          uuid.New(),
				ExchangeID:  models.ExchangeBF,
				MarketID:    local.MarketID,
				SelectionID: local.SelectionID,
				Side:        local.Side,
				Price:       local.Price,
				Stake:       local.Stake - local.MatchedStake,
				Ref:         placed.BetID,
				Status:      models.OrderUnmatched,
			}
			out.UnmatchedStake = out.Stake - placed.SizeMatched
			out.MatchedStake = placed.SizeMatched
			if placed.OrderStatus == "EXECUTION_COMPLETE" {
				out.Status = models.OrderMatched
				out.UnmatchedStake = 0
			}
			reports[local.ID] = out
		}
	}

	return reports, nil
}

// OrderStatus fetches current state for tracked orders via listCurrentOrders
// and maps each report back to its local order by bet id.
func (c *Client) OrderStatus(ctx context.Context, orders []*models.Order) (map[uuid.UUID]*models.Order, error) {
	byRef := make(map[string]*models.Order, len(orders))
	betIDs := make([]string, 0, len(orders))
	for _, o := range orders {
		if o.Ref == "" {
			continue
		}
		byRef[o.Ref] = o
		betIDs = append(betIDs, o.Ref)
	}
	if len(betIDs) == 0 {
		return map[uuid.UUID]*models.Order{}, nil
	}

	params := map[string]interface{}{
		"betIds":      betIDs,
		"orderBy":     "BY_PLACE_TIME",
		"recordCount": len(betIDs),
	}

	result, err := c.makeRequest(ctx, c.config.APIURL, "SportsAPING/v1.0/listCurrentOrders", params)
	if err != nil {
		return nil, err
	}

	var resp struct {
		CurrentOrders []CurrentOrder `json:"currentOrders"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse current orders response: %w", err)
	}

	reports := make(map[uuid.UUID]*models.Order, len(resp.CurrentOrders))
	seen := make(map[string]bool, len(resp.CurrentOrders))
	for _, cur := range resp.CurrentOrders {
		local, ok := byRef[cur.BetID]
		if !ok {
			continue
		}
		seen[cur.BetID] = true
		reports[local.ID] = currentOrderReport(local, cur)
	}

	// Orders already settled drop out of listCurrentOrders with their full
	// stake matched.
	for ref, local := range byRef {
		if seen[ref] {
			continue
		}
		reports[local.ID] = &models.Order{
			ID:           local.ID,
			ExchangeID:   models.ExchangeBF,
			MarketID:     local.MarketID,
			SelectionID:  local.SelectionID,
			Side:         local.Side,
			Price:        local.Price,
			Stake:        local.Stake,
			Ref:          ref,
			Status:       models.OrderMatched,
			MatchedStake: local.Stake,
		}
	}

	return reports, nil
}

// CurrentOrder represents current order information from listCurrentOrders
type CurrentOrder struct {
	BetID               string    `json:"betId"`
	MarketID            string    `json:"marketId"`
	SelectionID         int64     `json:"selectionId"`
	Side                string    `json:"side"`
	Status              string    `json:"status"`
	PlacedDate          time.Time `json:"placedDate"`
	AveragePriceMatched float64   `json:"averagePriceMatched"`
	SizeMatched         float64   `json:"sizeMatched"`
	SizeRemaining       float64   `json:"sizeRemaining"`
	SizeCancelled       float64   `json:"sizeCancelled"`
	PriceSize           PriceSize `json:"priceSize"`
}

func currentOrderReport(local *models.Order, cur CurrentOrder) *models.Order {
	out := &models.Order{
		ID:             local.ID,
		ExchangeID:     models.ExchangeBF,
		MarketID:       local.MarketID,
		SelectionID:    local.SelectionID,
		Side:           local.Side,
		Price:          cur.PriceSize.Price,
		Stake:          cur.PriceSize.Size,
		Ref:            cur.BetID,
		MatchedStake:   cur.SizeMatched,
		UnmatchedStake: cur.SizeRemaining,
		PlacedAt:       cur.PlacedDate,
	}
	switch {
	case cur.Status == "EXECUTION_COMPLETE" && cur.SizeCancelled > 0 && cur.SizeMatched == 0:
		out.Status = models.OrderCancelled
	case cur.Status == "EXECUTION_COMPLETE":
		out.Status = models.OrderMatched
	default:
		out.Status = models.OrderUnmatched
	}
	return out
}

// ListChangedOrders is not supported on Betfair; order state is polled
// through OrderStatus instead.
func (c *Client) ListChangedOrders(ctx context.Context, since int64) (map[string]*models.Order, int64, error) {
	return map[string]*models.Order{}, since, nil
}

// Bootstrap is a no-op on Betfair: there is no changed-orders feed to drain.
func (c *Client) Bootstrap(ctx context.Context) (map[string]*models.Order, int64, error) {
	return map[string]*models.Order{}, 0, nil
}

// Balance returns current account funds via getAccountFunds
func (c *Client) Balance(ctx context.Context) (*models.AccountBalance, error) {
	result, err := c.makeRequest(ctx, c.config.AccountURL, "AccountAPING/v1.0/getAccountFunds", map[string]interface{}{})
	if err != nil {
		return nil, err
	}

	var resp struct {
		AvailableToBetBalance float64 `json:"availableToBetBalance"`
		Exposure              float64 `json:"exposure"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse account funds response: %w", err)
	}

	return &models.AccountBalance{
		ExchangeID: models.ExchangeBF,
		Available:  resp.AvailableToBetBalance,
		Exposure:   -resp.Exposure,
		FetchedAt:  time.Now(),
	}, nil
}

// groupByMarket splits orders into per-market groups preserving input order
func groupByMarket(orders []*models.Order) map[int64][]*models.Order {
	groups := make(map[int64][]*models.Order)
	for _, o := range orders {
		groups[o.MarketID] = append(groups[o.MarketID], o)
	}
	return groups
}
