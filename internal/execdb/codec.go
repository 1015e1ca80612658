package execdb

import (
	"encoding/json"

	"github.com/algotrade/execd/internal/account"
	"github.com/algotrade/execd/internal/ids"
	"github.com/algotrade/execd/internal/order"
	"github.com/algotrade/execd/internal/position"
)

// The types below are on-disk DTOs for the persistent variant. ids
// values carry unexported fields by design (invariants enforced only
// through constructors), so they are flattened to (value, scale) pairs
// here rather than marshaled directly.

type scaledDTO struct {
	V     int64      `json:"v"`
	Scale ids.Scale `json:"scale"`
}

func priceDTO(p ids.Price) scaledDTO    { return scaledDTO{V: p.Int64(), Scale: p.Scale()} }
func quantityDTO(q ids.Quantity) scaledDTO { return scaledDTO{V: q.Int64(), Scale: q.Scale()} }

func (d scaledDTO) toPrice() (ids.Price, error)       { return ids.NewPrice(d.V, d.Scale) }
func (d scaledDTO) toQuantity() (ids.Quantity, error) { return ids.NewQuantity(d.V, d.Scale) }

type accountDTO struct {
	AccountId string               `json:"account_id"`
	Balances  map[string]scaledDTO `json:"balances"`
	Margins   map[string]scaledDTO `json:"margins"`
	TsLastNs  int64                `json:"ts_last_ns"`
}

func encodeAccount(a *account.Account) ([]byte, error) {
	dto := accountDTO{
		AccountId: string(a.AccountId),
		Balances:  make(map[string]scaledDTO, len(a.Balances)),
		Margins:   make(map[string]scaledDTO, len(a.Margins)),
		TsLastNs:  a.TsLast.UnixNano(),
	}
	for k, v := range a.Balances {
		dto.Balances[k] = quantityDTO(v)
	}
	for k, v := range a.Margins {
		dto.Margins[k] = quantityDTO(v)
	}
	return json.Marshal(dto)
}

func decodeAccount(raw []byte) (*account.Account, error) {
	var dto accountDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return nil, err
	}
	accountID, err := ids.NewAccountId(dto.AccountId)
	if err != nil {
		return nil, err
	}
	balances := make(map[string]ids.Quantity, len(dto.Balances))
	for k, v := range dto.Balances {
		q, err := v.toQuantity()
		if err != nil {
			return nil, err
		}
		balances[k] = q
	}
	margins := make(map[string]ids.Quantity, len(dto.Margins))
	for k, v := range dto.Margins {
		q, err := v.toQuantity()
		if err != nil {
			return nil, err
		}
		margins[k] = q
	}
	return account.New(accountID, balances, margins, ids.NewTimestampFromUnixNano(dto.TsLastNs)), nil
}

type orderDTO struct {
	ClientOrderId string   `json:"client_order_id"`
	OrderId       string   `json:"order_id"`
	StrategyId    string   `json:"strategy_id"`
	Symbol        string   `json:"symbol"`
	Side          string   `json:"side"`
	Type          string   `json:"type"`
	Quantity      scaledDTO `json:"quantity"`
	FilledQty     scaledDTO `json:"filled_qty"`
	AvgPrice      scaledDTO `json:"avg_price"`
	HasAvgPrice   bool      `json:"has_avg_price"`
	Price         scaledDTO `json:"price"`
	TimeInForce   string    `json:"time_in_force"`
	State         uint8     `json:"state"`
	ExecutionIds  []string  `json:"execution_ids"`
	InitId        string    `json:"init_id"`
	TsInitNs      int64     `json:"ts_init_ns"`
	TsLastNs      int64     `json:"ts_last_ns"`
}

func encodeOrder(o *order.Order) ([]byte, error) {
	execIDs := make([]string, 0, len(o.ExecutionIds))
	for id := range o.ExecutionIds {
		execIDs = append(execIDs, id)
	}
	dto := orderDTO{
		ClientOrderId: string(o.ClientOrderId),
		OrderId:       string(o.OrderId),
		StrategyId:    string(o.StrategyId),
		Symbol:        string(o.Symbol),
		Side:          o.Side.String(),
		Type:          o.Type.String(),
		Quantity:      quantityDTO(o.Quantity),
		FilledQty:     quantityDTO(o.FilledQty),
		AvgPrice:      priceDTO(o.AvgPrice),
		HasAvgPrice:   o.HasAvgPrice,
		Price:         priceDTO(o.Price),
		TimeInForce:   o.TimeInForce.String(),
		State:         uint8(o.State),
		ExecutionIds:  execIDs,
		InitId:        o.InitId,
		TsInitNs:      o.TsInit.UnixNano(),
		TsLastNs:      o.TsLast.UnixNano(),
	}
	return json.Marshal(dto)
}

func decodeOrder(raw []byte) (*order.Order, error) {
	var dto orderDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return nil, err
	}
	clOrdID, err := ids.NewClientOrderId(dto.ClientOrderId)
	if err != nil {
		return nil, err
	}
	var orderID ids.OrderId
	if dto.OrderId != "" {
		orderID, err = ids.NewOrderId(dto.OrderId)
		if err != nil {
			return nil, err
		}
	}
	strategyID, err := ids.NewStrategyId(dto.StrategyId)
	if err != nil {
		return nil, err
	}
	symbol, err := ids.NewSymbol(dto.Symbol)
	if err != nil {
		return nil, err
	}
	side, err := ids.ParseSide(dto.Side)
	if err != nil {
		return nil, err
	}
	typ, err := ids.ParseOrderType(dto.Type)
	if err != nil {
		return nil, err
	}
	tif, err := ids.ParseTimeInForce(dto.TimeInForce)
	if err != nil {
		return nil, err
	}
	qty, err := dto.Quantity.toQuantity()
	if err != nil {
		return nil, err
	}
	filledQty, err := dto.FilledQty.toQuantity()
	if err != nil {
		return nil, err
	}
	avgPrice, err := dto.AvgPrice.toPrice()
	if err != nil {
		return nil, err
	}
	price, err := dto.Price.toPrice()
	if err != nil {
		return nil, err
	}

	execIDs := make(map[string]struct{}, len(dto.ExecutionIds))
	for _, id := range dto.ExecutionIds {
		execIDs[id] = struct{}{}
	}

	return &order.Order{
		ClientOrderId: clOrdID,
		OrderId:       orderID,
		StrategyId:    strategyID,
		Symbol:        symbol,
		Side:          side,
		Type:          typ,
		Quantity:      qty,
		FilledQty:     filledQty,
		AvgPrice:      avgPrice,
		HasAvgPrice:   dto.HasAvgPrice,
		Price:         price,
		TimeInForce:   tif,
		State:         order.State(dto.State),
		ExecutionIds:  execIDs,
		InitId:        dto.InitId,
		TsInit:        ids.NewTimestampFromUnixNano(dto.TsInitNs),
		TsLast:        ids.NewTimestampFromUnixNano(dto.TsLastNs),
	}, nil
}

type positionDTO struct {
	PositionId   string    `json:"position_id"`
	StrategyId   string    `json:"strategy_id"`
	Symbol       string    `json:"symbol"`
	Side         string    `json:"side"`
	Quantity     scaledDTO `json:"quantity"`
	AvgOpenPrice scaledDTO `json:"avg_open_price"`
	RealizedPnL  int64     `json:"realized_pnl"`
	TsOpenedNs   int64     `json:"ts_opened_ns"`
	TsClosedNs   int64     `json:"ts_closed_ns"`
	HasTsClosed  bool      `json:"has_ts_closed"`
}

func encodePosition(p *position.Position) ([]byte, error) {
	dto := positionDTO{
		PositionId:   string(p.PositionId),
		StrategyId:   string(p.StrategyId),
		Symbol:       string(p.Symbol),
		Side:         p.Side.String(),
		Quantity:     quantityDTO(p.Quantity),
		AvgOpenPrice: priceDTO(p.AvgOpenPrice),
		RealizedPnL:  p.RealizedPnL,
		TsOpenedNs:   p.TsOpened.UnixNano(),
		HasTsClosed:  p.HasTsClosed,
	}
	if p.HasTsClosed {
		dto.TsClosedNs = p.TsClosed.UnixNano()
	}
	return json.Marshal(dto)
}

func decodePosition(raw []byte) (*position.Position, error) {
	var dto positionDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return nil, err
	}
	positionID, err := ids.NewPositionId(dto.PositionId)
	if err != nil {
		return nil, err
	}
	strategyID, err := ids.NewStrategyId(dto.StrategyId)
	if err != nil {
		return nil, err
	}
	symbol, err := ids.NewSymbol(dto.Symbol)
	if err != nil {
		return nil, err
	}
	side, err := ids.ParsePositionSide(dto.Side)
	if err != nil {
		return nil, err
	}
	qty, err := dto.Quantity.toQuantity()
	if err != nil {
		return nil, err
	}
	avgOpen, err := dto.AvgOpenPrice.toPrice()
	if err != nil {
		return nil, err
	}

	p := &position.Position{
		PositionId:   positionID,
		StrategyId:   strategyID,
		Symbol:       symbol,
		Side:         side,
		Quantity:     qty,
		AvgOpenPrice: avgOpen,
		RealizedPnL:  dto.RealizedPnL,
		TsOpened:     ids.NewTimestampFromUnixNano(dto.TsOpenedNs),
		HasTsClosed:  dto.HasTsClosed,
	}
	if dto.HasTsClosed {
		p.TsClosed = ids.NewTimestampFromUnixNano(dto.TsClosedNs)
	}
	return p, nil
}
