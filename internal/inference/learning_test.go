package inference

import "testing"

func TestLearningRegisterDefaultsToHalf(t *testing.T) {
	l := newLearningRegister()
	if got := l.rate("weather_getForecast"); got != 0.5 {
		t.Errorf("expected default rate 0.5, got %v", got)
	}
}

func TestLearningRegisterSuccessIncreases(t *testing.T) {
	l := newLearningRegister()
	l.recordSuccess("fs_write")
	if got := l.rate("fs_write"); got != 0.6 {
		t.Errorf("expected 0.6 after one success, got %v", got)
	}
}

func TestLearningRegisterFailureDecreases(t *testing.T) {
	l := newLearningRegister()
	l.recordFailure("fs_write")
	if got := l.rate("fs_write"); got != 0.4 {
		t.Errorf("expected 0.4 after one failure, got %v", got)
	}
}

func TestLearningRegisterClampsToUnitInterval(t *testing.T) {
	l := newLearningRegister()
	for i := 0; i < 20; i++ {
		l.recordSuccess("fs_write")
	}
	if got := l.rate("fs_write"); got != 1.0 {
		t.Errorf("expected rate clamped to 1.0, got %v", got)
	}

	for i := 0; i < 20; i++ {
		l.recordFailure("fs_read")
	}
	if got := l.rate("fs_read"); got != 0.0 {
		t.Errorf("expected rate clamped to 0.0, got %v", got)
	}
}
