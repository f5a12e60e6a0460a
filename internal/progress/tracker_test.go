package progress

import "testing"

func TestTrackerPercentCompleteAdvances(t *testing.T) {
	tr := NewTracker("vol_1", 4, "en", "gemini-2.5-pro")
	tr.BeginChapter(1, "chapter_01")
	tr.RecordResult(true, 100, 50, true)
	snap := tr.Snapshot()
	if snap.ChaptersDone != 1 {
		t.Fatalf("expected 1 chapter done, got %d", snap.ChaptersDone)
	}
	if snap.PercentComplete != 25.0 {
		t.Fatalf("expected 25%% complete, got %v", snap.PercentComplete)
	}
	if !snap.CacheActive {
		t.Fatal("expected cache_active to be true")
	}
}

func TestTrackerCountsFailuresTowardPercent(t *testing.T) {
	tr := NewTracker("vol_1", 2, "en", "gemini-2.5-pro")
	tr.RecordResult(false, 10, 0, false)
	snap := tr.Snapshot()
	if snap.ChaptersFailed != 1 {
		t.Fatalf("expected 1 failure, got %d", snap.ChaptersFailed)
	}
	if snap.PercentComplete != 50.0 {
		t.Fatalf("expected 50%% complete (failures count toward done+failed), got %v", snap.PercentComplete)
	}
}

func TestTrackerFinishSetsFullPercentAndStatus(t *testing.T) {
	tr := NewTracker("vol_1", 3, "en", "gemini-2.5-pro")
	tr.Finish("completed")
	snap := tr.Snapshot()
	if snap.Status != "completed" {
		t.Fatalf("expected status completed, got %q", snap.Status)
	}
	if snap.PercentComplete != 100.0 {
		t.Fatalf("expected 100%% on finish, got %v", snap.PercentComplete)
	}
}

func TestTrackerTokensAccumulate(t *testing.T) {
	tr := NewTracker("vol_1", 2, "en", "gemini-2.5-pro")
	tr.RecordResult(true, 100, 50, false)
	tr.RecordResult(true, 200, 75, false)
	snap := tr.Snapshot()
	if snap.InputTokens != 300 || snap.OutputTokens != 125 {
		t.Fatalf("expected accumulated tokens 300/125, got %d/%d", snap.InputTokens, snap.OutputTokens)
	}
}

func TestTrackerZeroTotalChaptersDoesNotDivideByZero(t *testing.T) {
	tr := NewTracker("vol_1", 0, "en", "gemini-2.5-pro")
	tr.RecordResult(true, 1, 1, false)
	snap := tr.Snapshot()
	if snap.PercentComplete != 0 {
		t.Fatalf("expected percent to remain 0 with zero total chapters, got %v", snap.PercentComplete)
	}
}
