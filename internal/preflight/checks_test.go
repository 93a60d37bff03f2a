package preflight

import (
	"testing"
)

func TestCheckBinaryMissing(t *testing.T) {
	result := checkBinary("definitely-not-a-real-binary-name")
	if result.OK {
		t.Fatal("expected missing binary to fail")
	}
}

func TestCheckDiskSpace(t *testing.T) {
	result := checkDiskSpace(t.TempDir())
	if !result.OK {
		t.Skipf("temp dir below headroom threshold: %s", result.Detail)
	}
	if result.Detail == "" {
		t.Error("expected free space detail")
	}
}

func TestCheckDiskSpaceUnconfigured(t *testing.T) {
	if result := checkDiskSpace(""); result.OK {
		t.Fatal("expected unconfigured work dir to fail")
	}
}

func TestOk(t *testing.T) {
	pass := []Result{{OK: true}, {OK: true}}
	if !Ok(pass) {
		t.Error("all-pass should be ok")
	}
	fail := []Result{{OK: true}, {OK: false}}
	if Ok(fail) {
		t.Error("any failure should not be ok")
	}
}
