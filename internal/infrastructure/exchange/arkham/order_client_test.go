package arkham

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"arkx/internal/domain/model"
	"arkx/internal/infrastructure/svc"
)

type orderRecorder struct {
	mu     sync.Mutex
	orders []orderPayload
	// fail lists symbols whose submission returns 500
	fail map[string]bool
}

func (rec *orderRecorder) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p orderPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode order payload: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		rec.mu.Lock()
		rec.orders = append(rec.orders, p)
		failed := rec.fail[p.Symbol]
		rec.mu.Unlock()
		if failed {
			http.Error(w, "insufficient margin", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"id":"1"}`))
	}
}

func newOrderTest(t *testing.T, rec *orderRecorder) *Clients {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/orders/new", rec.handler(t))
	mux.Handle("/api/account/positions", positionsHandler(t))
	return newTestClients(t, mux)
}

func TestPlaceOrderOpenRoundsDown(t *testing.T) {
	rec := &orderRecorder{}
	c := newOrderTest(t, rec)

	placed, err := c.Order.PlaceOrder(context.Background(), model.OrderIntent{
		Coin:   "BTC",
		Side:   model.SideBuy,
		Type:   model.OrderMarket,
		Market: model.MarketFutures,
		Size:   0.123456,
	})
	if err != nil || !placed {
		t.Fatalf("PlaceOrder = %v, %v", placed, err)
	}

	got := rec.orders[0]
	if got.Size != "0.12345" {
		t.Errorf("size = %q, want 0.12345 (floored to step)", got.Size)
	}
	if got.Symbol != "BTC_USDT_PERP" || got.Side != "buy" || got.Type != "market" {
		t.Errorf("payload = %+v", got)
	}
	if got.Price != "0" {
		t.Errorf("market order price = %q, want 0", got.Price)
	}
	if got.ClientOrderID != nil {
		t.Errorf("clientOrderId = %v, want null", *got.ClientOrderID)
	}
	if got.PostOnly || got.ReduceOnly {
		t.Errorf("flags = postOnly %v reduceOnly %v, want false/false", got.PostOnly, got.ReduceOnly)
	}
}

func TestPlaceOrderLimit(t *testing.T) {
	rec := &orderRecorder{}
	c := newOrderTest(t, rec)

	if _, err := c.Order.PlaceOrder(context.Background(), model.OrderIntent{
		Coin:   "ETH",
		Side:   model.SideSell,
		Type:   model.OrderLimit,
		Market: model.MarketSpot,
		Size:   1.5,
		Price:  3210.5,
	}); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	got := rec.orders[0]
	if got.Type != "limitGtc" {
		t.Errorf("type = %q, want limitGtc", got.Type)
	}
	if got.Price != "3210.5" {
		t.Errorf("price = %q, want 3210.5", got.Price)
	}
	if got.Symbol != "ETH_USDT" {
		t.Errorf("symbol = %q, want ETH_USDT", got.Symbol)
	}
}

func TestPlaceOrderReduceRounding(t *testing.T) {
	rec := &orderRecorder{}
	c := newOrderTest(t, rec)

	placed, err := c.Order.PlaceOrder(context.Background(), model.OrderIntent{
		Coin:       "BTC",
		Side:       model.SideSell,
		Type:       model.OrderMarket,
		Market:     model.MarketFutures,
		ReduceOnly: true,
		Size:       0.12344,
	})
	if err != nil || !placed {
		t.Fatalf("PlaceOrder = %v, %v", placed, err)
	}
	if got := rec.orders[0].Size; got != "0.1234" {
		t.Errorf("reduce size = %q, want 0.1234", got)
	}
	if !rec.orders[0].ReduceOnly {
		t.Error("reduceOnly flag not set")
	}
}

func TestPlaceOrderReduceBelowStepIsNoop(t *testing.T) {
	rec := &orderRecorder{}
	c := newOrderTest(t, rec)

	placed, err := c.Order.PlaceOrder(context.Background(), model.OrderIntent{
		Coin:       "BTC",
		Side:       model.SideSell,
		Type:       model.OrderMarket,
		Market:     model.MarketFutures,
		ReduceOnly: true,
		Size:       0.00004,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if placed {
		t.Error("sub-step reduce size must not submit an order")
	}
	if len(rec.orders) != 0 {
		t.Errorf("orders submitted = %d, want 0", len(rec.orders))
	}
}

// 半步长进位到一个完整步长，而不是舍去
func TestPlaceOrderReduceHalfStepRoundsUp(t *testing.T) {
	rec := &orderRecorder{}
	c := newOrderTest(t, rec)

	placed, err := c.Order.PlaceOrder(context.Background(), model.OrderIntent{
		Coin:       "BTC",
		Side:       model.SideSell,
		Type:       model.OrderMarket,
		Market:     model.MarketFutures,
		ReduceOnly: true,
		Size:       0.00005,
	})
	if err != nil || !placed {
		t.Fatalf("PlaceOrder = %v, %v", placed, err)
	}
	if got := rec.orders[0].Size; got != "0.0001" {
		t.Errorf("size = %q, want 0.0001", got)
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	rec := &orderRecorder{}
	c := newOrderTest(t, rec)

	tests := []struct {
		name   string
		intent model.OrderIntent
	}{
		{"reduce-only spot", model.OrderIntent{Coin: "BTC", Side: model.SideSell, Type: model.OrderMarket, Market: model.MarketSpot, ReduceOnly: true, Size: 1}},
		{"limit without price", model.OrderIntent{Coin: "BTC", Side: model.SideBuy, Type: model.OrderLimit, Market: model.MarketFutures, Size: 1}},
		{"bad side", model.OrderIntent{Coin: "BTC", Side: "hold", Type: model.OrderMarket, Market: model.MarketFutures, Size: 1}},
		{"empty coin", model.OrderIntent{Side: model.SideBuy, Type: model.OrderMarket, Market: model.MarketFutures, Size: 1}},
		{"zero open size", model.OrderIntent{Coin: "BTC", Side: model.SideBuy, Type: model.OrderMarket, Market: model.MarketFutures}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Order.PlaceOrder(context.Background(), tt.intent)
			var verr *svc.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
		})
	}
	if len(rec.orders) != 0 {
		t.Errorf("invalid intents submitted %d orders", len(rec.orders))
	}
}

func TestPlaceOrderTransportError(t *testing.T) {
	rec := &orderRecorder{fail: map[string]bool{"BTC_USDT_PERP": true}}
	c := newOrderTest(t, rec)

	_, err := c.Order.PlaceOrder(context.Background(), model.OrderIntent{
		Coin:   "BTC",
		Side:   model.SideBuy,
		Type:   model.OrderMarket,
		Market: model.MarketFutures,
		Size:   0.5,
	})
	var terr *svc.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("error = %v, want TransportError", err)
	}
	if !strings.Contains(terr.Error(), "insufficient margin") {
		t.Errorf("error %q should carry the response body", terr.Error())
	}
}

func TestCloseAll(t *testing.T) {
	rec := &orderRecorder{fail: map[string]bool{"ETH_USDT_PERP": true}}
	c := newOrderTest(t, rec)

	results, err := c.Order.CloseAll(context.Background())
	if err != nil {
		t.Fatalf("CloseAll: %v", err)
	}
	want := map[string]bool{"BTC": true, "ETH": false}
	if len(results) != len(want) {
		t.Fatalf("results = %v, want %v", results, want)
	}
	for coin, ok := range want {
		if results[coin] != ok {
			t.Errorf("results[%s] = %v, want %v", coin, results[coin], ok)
		}
	}

	bySymbol := map[string]orderPayload{}
	for _, o := range rec.orders {
		bySymbol[o.Symbol] = o
	}
	btc := bySymbol["BTC_USDT_PERP"]
	if btc.Side != "sell" || !btc.ReduceOnly || btc.Type != "market" {
		t.Errorf("long close payload = %+v", btc)
	}
	if btc.Size != "0.5" {
		t.Errorf("BTC close size = %q, want 0.5", btc.Size)
	}
	eth := bySymbol["ETH_USDT_PERP"]
	if eth.Side != "buy" || !eth.ReduceOnly {
		t.Errorf("short close payload = %+v", eth)
	}
	if eth.Size != "2" {
		t.Errorf("ETH close size = %q, want 2", eth.Size)
	}
}

// The BTC fixture position carries no resting orders, so the close size
// must come from the position base, never from open-order quantities.
func TestCloseLongResolvesFromPositionBase(t *testing.T) {
	rec := &orderRecorder{}
	c := newOrderTest(t, rec)

	placed, err := c.Order.CloseLong(context.Background(), "BTC", 0)
	if err != nil {
		t.Fatalf("CloseLong: %v", err)
	}
	if !placed || len(rec.orders) != 1 {
		t.Fatalf("open long of base=0.5 was not closed: placed=%v orders=%d", placed, len(rec.orders))
	}
	if got := rec.orders[0]; got.Size != "0.5" || got.Side != "sell" || !got.ReduceOnly {
		t.Errorf("payload = %+v, want reduce-only sell 0.5", got)
	}
}

func TestCloseLongOnShortIsNoop(t *testing.T) {
	rec := &orderRecorder{}
	c := newOrderTest(t, rec)

	placed, err := c.Order.CloseLong(context.Background(), "ETH", 0)
	if err != nil {
		t.Fatalf("CloseLong: %v", err)
	}
	if placed || len(rec.orders) != 0 {
		t.Errorf("closing a long on a short position must be a no-op, got %v orders", len(rec.orders))
	}
}

func TestCloseShortResolvesFromPositionBase(t *testing.T) {
	rec := &orderRecorder{}
	c := newOrderTest(t, rec)

	placed, err := c.Order.CloseShort(context.Background(), "ETH", 0)
	if err != nil || !placed {
		t.Fatalf("CloseShort = %v, %v", placed, err)
	}
	if got := rec.orders[0]; got.Size != "2" || got.Side != "buy" {
		t.Errorf("payload = %+v, want buy 2", got)
	}
}
