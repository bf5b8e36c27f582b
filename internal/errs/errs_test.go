package errs

import "testing"

func TestClassifyToolFailureTimeoutTakesPriority(t *testing.T) {
	if got := ClassifyToolFailure("required property missing", true, false); got != KindTimeout {
		t.Errorf("expected KindTimeout, got %v", got)
	}
}

func TestClassifyToolFailureTransport(t *testing.T) {
	if got := ClassifyToolFailure("connection reset", false, true); got != KindTransport {
		t.Errorf("expected KindTransport, got %v", got)
	}
}

func TestClassifyToolFailureValidationMarkers(t *testing.T) {
	cases := []string{
		"Validation error: bad input",
		"missing required property 'city'",
		"invalid parameter value",
	}
	for _, msg := range cases {
		if got := ClassifyToolFailure(msg, false, false); got != KindValidation {
			t.Errorf("expected KindValidation for %q, got %v", msg, got)
		}
	}
}

func TestClassifyToolFailureDefaultsToServerError(t *testing.T) {
	if got := ClassifyToolFailure("something went wrong internally", false, false); got != KindServerError {
		t.Errorf("expected KindServerError, got %v", got)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := New(KindTimeout, "inner")
	wrapped := Wrap(KindTransport, "outer", cause)
	if wrapped.Unwrap() != cause {
		t.Errorf("expected Unwrap to return the wrapped cause")
	}
	if wrapped.Error() != "TRANSPORT: outer: TIMEOUT: inner" {
		t.Errorf("unexpected error string: %q", wrapped.Error())
	}
}
