package postgres

import "testing"

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.defaults()
	if c.MaxConns != 10 || c.MinConns != 1 {
		t.Errorf("pool sizes = %d/%d, want 10/1", c.MaxConns, c.MinConns)
	}
	if c.ApplicationName != DefaultApplicationName {
		t.Errorf("ApplicationName = %q, want %q", c.ApplicationName, DefaultApplicationName)
	}

	c = Config{ApplicationName: "ledger-eu"}
	c.defaults()
	if c.ApplicationName != "ledger-eu" {
		t.Errorf("ApplicationName = %q, want ledger-eu", c.ApplicationName)
	}
}
