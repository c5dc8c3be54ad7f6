package services_test

import (
	"errors"
	"strings"
	"testing"

	"lapse/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("exit status 1")
	err := services.Wrap(services.ErrEncodeFailed, "finalize", "encode", "all codecs exhausted", base)
	if !errors.Is(err, services.ErrEncodeFailed) {
		t.Fatalf("expected ErrEncodeFailed, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped base error, got %v", err)
	}
	if !strings.Contains(err.Error(), "finalize: encode: all codecs exhausted") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestWrapNilMarkerDefaults(t *testing.T) {
	err := services.Wrap(nil, "worker", "spawn", "", nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool fallback, got %v", err)
	}
}

func TestWrapEmptyDetail(t *testing.T) {
	err := services.Wrap(services.ErrTimeout, "", "", "", nil)
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestNotice(t *testing.T) {
	if !services.Notice(services.ErrNoActiveSession) {
		t.Fatal("ErrNoActiveSession should be a notice")
	}
	if services.Notice(services.ErrEncodeFailed) {
		t.Fatal("ErrEncodeFailed should not be a notice")
	}
}
