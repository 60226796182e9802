package execx

import (
	"context"
	"strings"
	"testing"
)

func TestOSRunner_Output(t *testing.T) {
	t.Parallel()

	out, err := OSRunner{}.Output(context.Background(), "sh", "-c", "printf 'wg0\\tpriv\\n'")
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if out != "wg0\tpriv\n" {
		t.Fatalf("out=%q", out)
	}
}

func TestOSRunner_ErrorCarriesStderr(t *testing.T) {
	t.Parallel()

	_, err := OSRunner{}.Output(context.Background(), "sh", "-c", "echo 'Unable to access interface' >&2; exit 1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "Unable to access interface") {
		t.Fatalf("err=%v", err)
	}
}
