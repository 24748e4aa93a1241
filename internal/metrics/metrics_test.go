package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAttempt(t *testing.T) {
	before := testutil.ToFloat64(attemptsTotal.WithLabelValues("native", "terminal"))
	RecordAttempt("native", "terminal", 250*time.Millisecond)
	if got := testutil.ToFloat64(attemptsTotal.WithLabelValues("native", "terminal")); got != before+1 {
		t.Errorf("attempts_total = %v, want %v", got, before+1)
	}
}

func TestRecordAdmission(t *testing.T) {
	denied := testutil.ToFloat64(admissionTotal.WithLabelValues("denied"))
	allowed := testutil.ToFloat64(admissionTotal.WithLabelValues("allowed"))
	RecordAdmission(false)
	RecordAdmission(true)
	RecordAdmission(true)
	if got := testutil.ToFloat64(admissionTotal.WithLabelValues("denied")); got != denied+1 {
		t.Errorf("denied = %v, want %v", got, denied+1)
	}
	if got := testutil.ToFloat64(admissionTotal.WithLabelValues("allowed")); got != allowed+2 {
		t.Errorf("allowed = %v, want %v", got, allowed+2)
	}
}
