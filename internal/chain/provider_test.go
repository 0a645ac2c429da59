package chain

import "testing"

func TestNewRPCProvider_RequiresPrimary(t *testing.T) {
	if _, err := NewRPCProvider("", "http://secondary"); err == nil {
		t.Error("NewRPCProvider() with empty primary did not error")
	}
}

func TestRPCProvider_Failover(t *testing.T) {
	provider, err := NewRPCProvider("http://primary", "http://secondary")
	if err != nil {
		t.Fatalf("NewRPCProvider() error = %v", err)
	}

	url, err := provider.GetCurrentURL()
	if err != nil {
		t.Fatalf("GetCurrentURL() error = %v", err)
	}
	if url != "http://primary" {
		t.Errorf("GetCurrentURL() = %q, want primary", url)
	}

	if err := provider.Failover(); err != nil {
		t.Fatalf("Failover() error = %v", err)
	}

	url, _ = provider.GetCurrentURL()
	if url != "http://secondary" {
		t.Errorf("GetCurrentURL() after failover = %q, want secondary", url)
	}

	// No further endpoint to fail over to
	if err := provider.Failover(); err == nil {
		t.Error("second Failover() did not error")
	}

	provider.Reset()
	url, _ = provider.GetCurrentURL()
	if url != "http://primary" {
		t.Errorf("GetCurrentURL() after reset = %q, want primary", url)
	}
}

func TestRPCProvider_FailoverWithoutSecondary(t *testing.T) {
	provider, err := NewRPCProvider("http://primary", "")
	if err != nil {
		t.Fatalf("NewRPCProvider() error = %v", err)
	}

	if err := provider.Failover(); err == nil {
		t.Error("Failover() without secondary did not error")
	}
}
