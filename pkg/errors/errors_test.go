package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindMatching(t *testing.T) {
	err := fmt.Errorf("handler: %w", BadRequest("Description is required"))

	if !stderrors.Is(err, ErrBadRequest) {
		t.Error("errors.Is(err, ErrBadRequest) = false")
	}
	if stderrors.Is(err, ErrUpstream) {
		t.Error("errors.Is(err, ErrUpstream) = true")
	}
	if KindOf(err) != KindBadRequest {
		t.Errorf("KindOf() = %s", KindOf(err))
	}
	if KindOf(stderrors.New("plain")) != KindUnknown {
		t.Error("plain error should be KindUnknown")
	}
}

func TestUpstreamStatus(t *testing.T) {
	cause := stderrors.New("boom")
	if got := Upstream(cause, 0).HTTPStatus; got != http.StatusBadGateway {
		t.Errorf("Upstream(err, 0).HTTPStatus = %d, want 502", got)
	}
	e := Upstream(cause, http.StatusTooManyRequests)
	if e.HTTPStatus != http.StatusTooManyRequests {
		t.Errorf("HTTPStatus = %d", e.HTTPStatus)
	}
	if !stderrors.Is(e, cause) {
		t.Error("Upstream should unwrap to its cause")
	}
}

func TestRequestFailed(t *testing.T) {
	e := RequestFailed(http.StatusInternalServerError, "500 Internal Server Error")
	if e.Kind != KindRequestFailed || e.HTTPStatus != 500 || e.Status != "500 Internal Server Error" {
		t.Errorf("RequestFailed() = %+v", e)
	}
}

func TestAsAppError(t *testing.T) {
	plain := stderrors.New("plain")
	wrapped := AsAppError(plain)
	if wrapped.Kind != KindUnknown || !stderrors.Is(wrapped, plain) {
		t.Errorf("AsAppError(plain) = %+v", wrapped)
	}

	orig := Configuration("missing API key")
	if got := AsAppError(fmt.Errorf("start: %w", orig)); got != orig {
		t.Error("AsAppError() should return the wrapped AppError itself")
	}
	if orig.Error() != "[ConfigurationError] missing API key" {
		t.Errorf("Error() = %q", orig.Error())
	}
}
