package arkham

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"arkx/internal/infrastructure/svc"
)

func TestBalance(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    float64
		wantErr error
	}{
		{"bare object", `{"totalAssetValue":"1234.56789"}`, 1234.568, nil},
		{"numeric value", `{"totalAssetValue":1234.56789}`, 1234.568, nil},
		{"array wrapped", `[{"totalAssetValue":"42.1"},{"totalAssetValue":"9"}]`, 42.1, nil},
		{"empty array", `[]`, 0, svc.ErrNotFound},
		{"missing field", `{"other":1}`, 0, svc.ErrNotFound},
		{"null value", `{"totalAssetValue":null}`, 0, svc.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotReferer string
			mux := http.NewServeMux()
			mux.HandleFunc("/api/account/margin/all", func(w http.ResponseWriter, r *http.Request) {
				gotReferer = r.Header.Get("referer")
				w.Write([]byte(tt.body))
			})

			c := newTestClients(t, mux)
			got, err := c.Account.Balance(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Balance error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Balance = %v, want %v", got, tt.want)
			}
			if tt.wantErr == nil && gotReferer == "" {
				t.Error("balance request sent no referer")
			}
		})
	}
}

func TestVolumeSumsSpotAndPerp(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/affiliate-dashboard/volume-season-2", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"spotVolume":"1000.1234","perpVolume":2000.5}`))
	})
	c := newTestClients(t, mux)
	got, err := c.Account.Volume(context.Background())
	if err != nil {
		t.Fatalf("Volume: %v", err)
	}
	if got != 3000.623 {
		t.Errorf("Volume = %v, want 3000.623", got)
	}
}

func TestVolumeMissingCategoriesDefaultToZero(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/affiliate-dashboard/volume-season-2", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"spotVolume":"15.5"}`))
	})
	c := newTestClients(t, mux)
	got, err := c.Account.Volume(context.Background())
	if err != nil {
		t.Fatalf("Volume: %v", err)
	}
	if got != 15.5 {
		t.Errorf("Volume = %v, want 15.5", got)
	}
}

func TestRewards(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/rewards/info", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"marginBonus":"12.3456","feeCredit":0.789}`))
	})
	c := newTestClients(t, mux)
	bonus, credit, err := c.Account.Rewards(context.Background())
	if err != nil {
		t.Fatalf("Rewards: %v", err)
	}
	if bonus != 12.346 || credit != 0.789 {
		t.Errorf("Rewards = %v/%v, want 12.346/0.789", bonus, credit)
	}
}

func TestAccountHTTPErrorIsTransport(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/affiliate-dashboard/points-season-2", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	c := newTestClients(t, mux)
	_, err := c.Account.Points(context.Background())
	var terr *svc.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("Points error = %v, want TransportError", err)
	}
	if terr.Status != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", terr.Status)
	}
}
