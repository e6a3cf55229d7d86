package natsconn

import (
	"testing"
	"time"
)

func TestEnvInt(t *testing.T) {
	if v := envInt("NATSCONN_TEST_UNSET", 9); v != 9 {
		t.Fatalf("unset key must use fallback, got %d", v)
	}

	t.Setenv("NATSCONN_TEST_INT", "7")
	if v := envInt("NATSCONN_TEST_INT", 9); v != 7 {
		t.Fatalf("expected 7, got %d", v)
	}

	t.Setenv("NATSCONN_TEST_INT", "-3")
	if v := envInt("NATSCONN_TEST_INT", 9); v != 9 {
		t.Fatalf("negative value must use fallback, got %d", v)
	}
}

func TestEnvDuration(t *testing.T) {
	if v := envDuration("NATSCONN_TEST_UNSET", 5*time.Second); v != 5*time.Second {
		t.Fatalf("unset key must use fallback, got %s", v)
	}

	t.Setenv("NATSCONN_TEST_DUR", "3s")
	if v := envDuration("NATSCONN_TEST_DUR", 5*time.Second); v != 3*time.Second {
		t.Fatalf("expected 3s, got %s", v)
	}

	t.Setenv("NATSCONN_TEST_DUR", "soon")
	if v := envDuration("NATSCONN_TEST_DUR", 5*time.Second); v != 5*time.Second {
		t.Fatalf("unparseable value must use fallback, got %s", v)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	// Nothing listens on this port; Connect must not retry forever.
	_, err := Connect(Options{
		URL:           "nats://127.0.0.1:19999",
		ReconnectWait: 10 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected error connecting to unreachable NATS URL")
	}
}
