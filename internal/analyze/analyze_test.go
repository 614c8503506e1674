package analyze

import "testing"

func TestDefaultRecordsAnalysisError(t *testing.T) {
	a := Default("provider returned malformed JSON")
	if a.AnalysisError == "" {
		t.Fatal("expected AnalysisError to be set")
	}
	if a.Sentiment == "" || a.Category == "" || a.ContentType == "" || a.TechnicalLevel == "" {
		t.Fatal("expected all default fields to be populated rather than zero-valued")
	}
}
