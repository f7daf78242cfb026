package env

import "testing"

func TestGet(t *testing.T) {
	t.Setenv("LEDGERLINK_TEST_VALUE", "present")

	v, ok := Get("LEDGERLINK_TEST_VALUE")
	if !ok || v != "present" {
		t.Fatalf("expected present, got %q (ok=%v)", v, ok)
	}

	if _, ok := Get("LEDGERLINK_TEST_UNSET_VALUE"); ok {
		t.Fatal("expected unset variable to be reported missing")
	}
}
