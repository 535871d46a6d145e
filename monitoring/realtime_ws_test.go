package monitoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func waitForClients(hub *PredictionHub, want int) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return hub.ClientCount() == want
}

func TestPredictionHubBroadcast(t *testing.T) {
	hub := NewPredictionHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Start(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	if !waitForClients(hub, 1) {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}

	hub.BroadcastPrediction("setosa", 0.97, []float64{5.1, 3.5, 1.4, 0.2}, "api")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(string(payload), `"label":"setosa"`) {
		t.Errorf("unexpected event payload: %s", payload)
	}
}

func TestPredictionHubShutdown(t *testing.T) {
	hub := NewPredictionHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Start(ctx)
		close(stopped)
	}()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	if !waitForClients(hub, 1) {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop after context cancel")
	}

	// 已有连接应被关闭，其读取泵随之退出
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	// 停止后的新连接不能卡在注册上，必须立即断开
	late, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		late.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, _, readErr := late.ReadMessage(); readErr == nil {
			t.Error("expected connection accepted after shutdown to be closed")
		}
		late.Close()
	}

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients after shutdown, got %d", hub.ClientCount())
	}
}
