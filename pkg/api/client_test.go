package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-token", 5*time.Second, zap.NewNop())
}

func TestGetPackages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/packages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("admin") != "true" {
			t.Error("expected admin=true query parameter")
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected auth header: %q", got)
		}
		w.Write([]byte(`{"packages":[
			{"_id":"p1","name":"Europe 5GB","region":"Europe","data_limit_gb":5,"duration_days":30,"wholesale_cost":4.5,"retail_price":9.99,"is_live":true},
			{"_id":"p2","name":"Asia 10GB","region":"Asia","data_limit_gb":10,"duration_days":14,"wholesale_cost":7,"retail_price":6.5,"is_live":false}
		]}`))
	})

	pkgs, err := client.GetPackages(context.Background(), true)
	if err != nil {
		t.Fatalf("GetPackages failed: %v", err)
	}
	if len(pkgs) != 2 {
		t.Fatalf("got %d packages, want 2", len(pkgs))
	}
	if pkgs[0].ID != "p1" || pkgs[0].Region != "Europe" || !pkgs[0].IsLive {
		t.Errorf("first package decoded wrong: %+v", pkgs[0])
	}
	if pkgs[1].IsLive {
		t.Error("draft package decoded as live")
	}
}

func TestGetPackagesEmptyCatalog(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"packages":[]}`))
	})

	pkgs, err := client.GetPackages(context.Background(), false)
	if err != nil {
		t.Fatalf("empty catalog must not be an error, got: %v", err)
	}
	if len(pkgs) != 0 {
		t.Fatalf("got %d packages, want 0", len(pkgs))
	}
}

func TestSubmitInventoryRequest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/inventory/requests" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"request_id":"req-42"}`))
	})

	id, err := client.SubmitInventoryRequest(context.Background(), InventoryRequest{
		TotalTokens: 100,
		TotalAmount: 450,
		Packages: []InventoryLine{
			{PackageID: "p1", Name: "Europe 5GB", Region: "Europe", Quantity: 100, UnitPrice: 4.5, LineTotal: 450},
		},
		Requester: Requester{ChatID: 7, Username: "partner"},
	})
	if err != nil {
		t.Fatalf("SubmitInventoryRequest failed: %v", err)
	}
	if id != "req-42" {
		t.Errorf("got request id %q, want req-42", id)
	}
}

func TestBackendErrorMessageSurfacedVerbatim(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Insufficient vendor balance"}`))
	})

	_, err := client.SubmitInventoryRequest(context.Background(), InventoryRequest{})
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *api.Error, got %T", err)
	}
	if apiErr.Error() != "Insufficient vendor balance" {
		t.Errorf("backend message not surfaced verbatim: %q", apiErr.Error())
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", apiErr.StatusCode)
	}
}

func TestErrorWithoutMessageFallsBackToStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.GetVendorBalance(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *api.Error, got %T", err)
	}
	if apiErr.Error() != "backend returned status 500" {
		t.Errorf("unexpected fallback message: %q", apiErr.Error())
	}
}

func TestUpdatePackagePrice(t *testing.T) {
	var gotBody string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/packages/p1/price" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		w.WriteHeader(http.StatusOK)
	})

	if err := client.UpdatePackagePrice(context.Background(), "p1", 12.5); err != nil {
		t.Fatalf("UpdatePackagePrice failed: %v", err)
	}
	if gotBody != `{"retail_price":12.5}` {
		t.Errorf("unexpected body: %s", gotBody)
	}
}

func TestUpdatePackageStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/packages/p2/status" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.UpdatePackageStatus(context.Background(), "p2", true); err != nil {
		t.Fatalf("UpdatePackageStatus failed: %v", err)
	}
}

func TestGetNotificationsCursor(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("after"); got != "n-5" {
			t.Errorf("got after=%q, want n-5", got)
		}
		w.Write([]byte(`{"notifications":[{"_id":"n-6","title":"Low balance","message":"Vendor balance below $10","type":"warning"}]}`))
	})

	ns, err := client.GetNotifications(context.Background(), "n-5")
	if err != nil {
		t.Fatalf("GetNotifications failed: %v", err)
	}
	if len(ns) != 1 || ns[0].ID != "n-6" {
		t.Fatalf("unexpected notifications: %+v", ns)
	}
}
