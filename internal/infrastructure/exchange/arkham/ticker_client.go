package arkham

import (
	"context"
	"fmt"
	"net/http"

	"arkx/internal/domain/model"
	"arkx/internal/infrastructure/svc"
)

// Ticker 公开行情快照
type Ticker struct {
	Symbol       string
	ProductType  string
	Price        float64
	MarkPrice    float64
	IndexPrice   float64
	High24h      float64
	Low24h       float64
	Volume24h    float64
	Price24hAgo  float64
	FundingRate  float64
	OpenInterest float64
}

// Change24h 24 小时涨跌幅（百分比）
func (t Ticker) Change24h() float64 {
	if t.Price24hAgo == 0 {
		return 0
	}
	return round2((t.Price - t.Price24hAgo) / t.Price24hAgo * 100)
}

// TickerClient 读取公开行情，无需登录态
type TickerClient struct {
	*APIClient
}

type tickerResp struct {
	Symbol       string   `json:"symbol"`
	ProductType  string   `json:"productType"`
	Price        apiFloat `json:"price"`
	MarkPrice    apiFloat `json:"markPrice"`
	IndexPrice   apiFloat `json:"indexPrice"`
	High24h      apiFloat `json:"high24h"`
	Low24h       apiFloat `json:"low24h"`
	Volume24h    apiFloat `json:"usdVolume24h"`
	Price24hAgo  apiFloat `json:"price24hAgo"`
	FundingRate  apiFloat `json:"fundingRate"`
	OpenInterest apiFloat `json:"openInterestUsd"`
}

func (c *TickerClient) ticker(ctx context.Context, symbol, wantType string) (Ticker, error) {
	resp, err := c.get(ctx, "/api/public/ticker", c.baseURL+"/trade/"+symbol, map[string]string{
		"symbol": symbol,
	})
	if err != nil {
		return Ticker{}, err
	}
	if resp.StatusCode() != http.StatusOK {
		return Ticker{}, &svc.TransportError{Op: "ticker " + symbol, Status: resp.StatusCode()}
	}

	var raw tickerResp
	if err := unmarshalFirst(resp.Body(), &raw); err != nil {
		return Ticker{}, err
	}
	if raw.ProductType != wantType {
		return Ticker{}, fmt.Errorf("symbol %s is %q, want %q", symbol, raw.ProductType, wantType)
	}
	return Ticker{
		Symbol:       raw.Symbol,
		ProductType:  raw.ProductType,
		Price:        float64(raw.Price),
		MarkPrice:    float64(raw.MarkPrice),
		IndexPrice:   float64(raw.IndexPrice),
		High24h:      float64(raw.High24h),
		Low24h:       float64(raw.Low24h),
		Volume24h:    float64(raw.Volume24h),
		Price24hAgo:  float64(raw.Price24hAgo),
		FundingRate:  float64(raw.FundingRate),
		OpenInterest: float64(raw.OpenInterest),
	}, nil
}

// SpotTicker 现货行情
func (c *TickerClient) SpotTicker(ctx context.Context, coin string) (Ticker, error) {
	return c.ticker(ctx, model.SpotSymbol(coin), "spot")
}

// PerpTicker 永续合约行情
func (c *TickerClient) PerpTicker(ctx context.Context, coin string) (Ticker, error) {
	return c.ticker(ctx, model.FuturesSymbol(coin), "perpetual")
}
