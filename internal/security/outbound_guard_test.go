package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewSafeClient(t *testing.T) {
	guard := NewOutboundGuard()
	timeout := 5 * time.Second
	client := guard.NewSafeClient(timeout)
	if client == nil {
		t.Fatal("NewSafeClient() returned nil")
	}
	if client.Timeout != timeout {
		t.Errorf("expected timeout %v, got %v", timeout, client.Timeout)
	}
	if client.Transport == nil || client.Transport == http.DefaultTransport {
		t.Error("safeurlのカスタムTransportが設定されるべき")
	}
}

// httptestサーバーは127.0.0.1で起動されるため、safeurlがブロックする。
func TestNewSafeClientBlocksLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewOutboundGuard().NewSafeClient(5 * time.Second)

	if _, err := client.Get(ts.URL); err == nil {
		t.Fatal("expected error for loopback address request, got nil")
	}
}

func TestValidateEndpoint(t *testing.T) {
	guard := NewOutboundGuard()

	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://nominatim.openstreetmap.org/reverse", false},
		{"http://geocoder.example.com/reverse", false},
		{"", true},
		{"ftp://example.com/reverse", true},
		{"https:///reverse", true},
		{"http://10.0.0.5/reverse", true},
		{"http://192.168.1.10/reverse", true},
		{"http://127.0.0.1:8080/reverse", true},
		{"http://169.254.169.254/latest/meta-data", true},
		{"http://[::1]/reverse", true},
		{"http://0.0.0.0/reverse", true},
		{"http://localhost/reverse", true},
		{"http://LOCALHOST./reverse", true},
		{"http://metadata.google.internal/computeMetadata", true},
		{"://bad", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := guard.ValidateEndpoint(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEndpoint(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestOutboundGuardInterface(t *testing.T) {
	var _ OutboundGuardService = NewOutboundGuard()
}
