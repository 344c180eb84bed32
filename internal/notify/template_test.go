package notify

import (
	"testing"
	"time"
)

var reportTime = time.Date(2025, time.March, 14, 9, 5, 0, 0, time.UTC)

func TestRender_DefaultFailure(t *testing.T) {
	data := BuildReportData("run-1", reportTime,
		[]string{"❌ Homepage: boom", "❌ Paid Media LP: bang"},
		[]string{"Request Info"},
	)

	subject, err := Render(DefaultFailureSubject, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subject != "\U0001f525 Form Test Failures" {
		t.Errorf("subject = %q", subject)
	}

	body, err := Render(DefaultFailureBody, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Some form tests failed on March 14, 2025 at 9:05:00 AM PT:\n\n❌ Homepage: boom\n\n❌ Paid Media LP: bang"
	if body != want {
		t.Errorf("body = %q, want %q", body, want)
	}
}

func TestRender_DefaultSuccess(t *testing.T) {
	data := BuildReportData("run-1", reportTime, nil, []string{"Homepage"})

	subject, err := Render(DefaultSuccessSubject, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subject != "✅ Form Test Passed (Manual Run)" {
		t.Errorf("subject = %q", subject)
	}

	body, err := Render(DefaultSuccessBody, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "All form tests passed successfully on March 14, 2025 at 9:05:00 AM PT." {
		t.Errorf("body = %q", body)
	}
}

func TestBuildReportData_Status(t *testing.T) {
	tests := []struct {
		failures []string
		status   string
		emoji    string
	}{
		{nil, "passed", "✅"},
		{[]string{"x"}, "failed", "\U0001f525"},
	}
	for _, tt := range tests {
		data := BuildReportData("id", reportTime, tt.failures, []string{"a"})
		if data.Status != tt.status || data.StatusEmoji != tt.emoji {
			t.Errorf("status = %q %q, want %q %q", data.Status, data.StatusEmoji, tt.status, tt.emoji)
		}
		if data.Failures == nil {
			t.Error("Failures should be non-nil")
		}
	}
}

func TestRender_SprigFunctions(t *testing.T) {
	data := BuildReportData("abc", reportTime, []string{"one", "two"}, nil)

	result, err := Render(`{{ .Status | upper }} {{ len .Failures }}/{{ .Total }} {{ .RunID | default "none" }}`, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "FAILED 2/2 abc" {
		t.Errorf("result = %q, want %q", result, "FAILED 2/2 abc")
	}
}

func TestRender_InvalidTemplate(t *testing.T) {
	data := BuildReportData("id", reportTime, nil, nil)
	if _, err := Render(`{{ .Status | nonexistent }}`, data); err == nil {
		t.Fatal("expected error for invalid template function")
	}
}
